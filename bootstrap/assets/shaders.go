package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/ignite/bootstrap/core"
)

// ShaderBlob is a SPIR-V module read from disk. Words carries the bytecode
// repacked as little-endian 32-bit words, the layout module creation expects.
type ShaderBlob struct {
	Name  string
	Path  string
	Data  []byte
	Words []uint32
}

type ShaderInfo struct {
	Path       string
	LastLoaded time.Time
}

// ShaderManager indexes the .spv files under a directory and watches them for
// rebuilds so a running application can hot-swap its pipelines.
type ShaderManager struct {
	dir     string
	shaders map[string]ShaderInfo

	mutex sync.RWMutex

	done     chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
	onReload func(path string)
}

func NewShaderManager(dir string) (*ShaderManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &ShaderManager{
		dir:      dir,
		shaders:  make(map[string]ShaderInfo),
		fsnotify: fsWatch,
		done:     make(chan struct{}),
	}, nil
}

// Initialize starts watching the shader directory. onReload is invoked from
// the watcher goroutine whenever a .spv file is written or created.
func (sm *ShaderManager) Initialize(onReload func(path string)) error {
	if sm.isClosed {
		return errors.New("shader manager already closed")
	}
	sm.onReload = onReload

	go sm.start()

	return sm.watchRecursive(sm.dir, false)
}

// LoadShader reads a SPIR-V blob by file name, e.g. "triangle.vert.spv".
// The only validation applied is that the byte size is a multiple of 4.
func (sm *ShaderManager) LoadShader(name string) (*ShaderBlob, error) {
	if !strings.HasSuffix(name, ".spv") {
		name += ".spv"
	}
	path := filepath.Join(sm.dir, name)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading shader %s: %w", path, err)
	}
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, fmt.Errorf("shader %s: bytecode size %d is not a multiple of 4", path, len(data))
	}

	sm.mutex.Lock()
	sm.shaders[path] = ShaderInfo{Path: path, LastLoaded: time.Now()}
	sm.mutex.Unlock()

	return &ShaderBlob{
		Name:  name,
		Path:  path,
		Data:  data,
		Words: bytesToBytecode(data),
	}, nil
}

// Close stops the watcher. Safe to call more than once.
func (sm *ShaderManager) Close() error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if sm.isClosed {
		return nil
	}
	sm.isClosed = true
	close(sm.done)
	return sm.fsnotify.Close()
}

func (sm *ShaderManager) start() {
	for {
		select {

		case e, ok := <-sm.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					sm.watchRecursive(e.Name, false)
				}
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 && isShaderFile(e.Name) {
				sm.handleFileEvent(e.Name)
				if sm.onReload != nil {
					sm.onReload(e.Name)
				}
			}
			if e.Op&fsnotify.Remove != 0 {
				sm.removeShader(e.Name)
				sm.fsnotify.Remove(e.Name)
			}

		case e, ok := <-sm.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(e.Error())

		case <-sm.done:
			return
		}
	}
}

// watchRecursive adds (or removes) every directory below path to the watch
// list and indexes the shader files it finds along the way.
func (sm *ShaderManager) watchRecursive(path string, unWatch bool) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if unWatch {
				if err = sm.fsnotify.Remove(walkPath); err != nil {
					return err
				}
			} else {
				if err = sm.fsnotify.Add(walkPath); err != nil {
					return err
				}
			}
		} else if isShaderFile(walkPath) {
			sm.handleFileEvent(walkPath)
		}
		return nil
	})
}

func (sm *ShaderManager) handleFileEvent(path string) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	sm.shaders[path] = ShaderInfo{
		Path:       path,
		LastLoaded: time.Now(),
	}
}

func (sm *ShaderManager) removeShader(path string) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	delete(sm.shaders, path)
}

func isShaderFile(path string) bool {
	return filepath.Ext(path) == ".spv"
}

// bytesToBytecode repacks raw bytes into the little-endian words SPIR-V uses.
func bytesToBytecode(b []byte) []uint32 {
	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}
	return byteCode
}
