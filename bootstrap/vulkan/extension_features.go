package vulkan

// DeviceExtensionFeature is one entry in the closed set of extension
// payloads a DeviceBuilder accepts. The builder folds them, in the order they
// were added, into the device create info.
type DeviceExtensionFeature interface {
	extensionNames() []string
}

// PortabilitySubsetFeature opts into VK_KHR_portability_subset explicitly.
// The device builder also adds it on its own whenever the driver advertises
// the extension, as the Vulkan spec requires.
type PortabilitySubsetFeature struct{}

func (PortabilitySubsetFeature) extensionNames() []string {
	return []string{"VK_KHR_portability_subset"}
}

// ShaderDrawParametersFeature enables gl_BaseVertex and friends in shaders.
type ShaderDrawParametersFeature struct{}

func (ShaderDrawParametersFeature) extensionNames() []string {
	return []string{"VK_KHR_shader_draw_parameters"}
}
