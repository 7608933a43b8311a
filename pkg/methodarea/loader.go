package methodarea

import (
	"os"
	"path/filepath"

	"github.com/mattstark/corevm/pkg/classfile"
	"github.com/mattstark/corevm/pkg/vmerrors"
)

// ClassLoader sources the raw bytes for a binary class name. The only
// implementation in this core is DirClassLoader; it replaces
// daimatz-gojvm's jmod-archive loader, which has no SPEC_FULL.md component
// to bind to (the classpath here is directories only, per spec.md §6).
type ClassLoader interface {
	Load(name string) (*classfile.ClassFile, error)
}

// DirClassLoader searches an ordered list of directories for
// "<name>.class"; the first directory containing the file wins.
type DirClassLoader struct {
	Classpath []string
}

func NewDirClassLoader(classpath []string) *DirClassLoader {
	return &DirClassLoader{Classpath: classpath}
}

func (l *DirClassLoader) Load(name string) (*classfile.ClassFile, error) {
	for _, dir := range l.Classpath {
		path := filepath.Join(dir, name+".class")
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return classfile.ParseFile(path)
	}
	return nil, vmerrors.New(vmerrors.ClassNotFound, "class %s not found in classpath %v", name, l.Classpath)
}
