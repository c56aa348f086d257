package shader

import (
	"encoding/binary"
	"fmt"
	"log"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

// SPIRVMagic is the first word of every SPIR-V module.
const SPIRVMagic uint32 = 0x07230203

const DefaultCacheSize = 8

type FileNotFoundError struct {
	Path string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("shader file not found: %s", e.Path)
}

func (e *FileNotFoundError) Unwrap() error {
	return os.ErrNotExist
}

type InvalidBytecodeError struct {
	Path   string
	Reason string
}

func (e *InvalidBytecodeError) Error() string {
	return fmt.Sprintf("invalid SPIR-V in %s: %s", e.Path, e.Reason)
}

// Loader reads pre-compiled shaders from a directory. Blobs are cached by path, pipeline rebuilds after a
// resize do not touch the disk again.
type Loader struct {
	dir   string
	cache *lru.Cache[string, []byte]
	reads int
}

func NewLoader(dir string, cacheSize int) (*Loader, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, []byte](cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "create shader cache")
	}
	return &Loader{dir: dir, cache: cache}, nil
}

func (l *Loader) Dir() string {
	return l.dir
}

// Load returns the byte code of the shader name. Names are relative to the loader's directory.
func (l *Loader) Load(name string) ([]byte, error) {
	path := JoinPaths(l.dir, name)
	if code, ok := l.cache.Get(path); ok {
		return code, nil
	}
	code, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &FileNotFoundError{Path: path}
		}
		return nil, errors.Wrapf(err, "read shader file %s", path)
	}
	l.reads++
	if err := Validate(code); err != nil {
		return nil, &InvalidBytecodeError{Path: path, Reason: err.Error()}
	}
	log.Printf("Read shader file (%s) of size: %dByte", path, len(code))
	l.cache.Add(path, code)
	return code, nil
}

// Validate checks the framing of a SPIR-V blob: whole 32 bit words starting with the magic number. Vulkan
// consumes the words in host order, so byte-swapped modules are rejected.
func Validate(code []byte) error {
	if len(code) == 0 {
		return errors.New("empty")
	}
	if len(code)%4 != 0 {
		return errors.Errorf("size %d is not a multiple of 4", len(code))
	}
	if binary.LittleEndian.Uint32(code) != SPIRVMagic {
		return errors.Errorf("bad magic number %#08x", binary.LittleEndian.Uint32(code))
	}
	return nil
}
