package methodarea

import "github.com/mattstark/corevm/pkg/classfile"

// Bootstrap classes are the JDK-internal types the native method dispatcher
// (pkg/natives) needs to exist as class records even though no real
// java.base class file ships with this core (there is no bundled JDK jmod;
// spec.md §6 defines the classpath as directories only). They carry no
// Code: every declared method here is native, dispatched through
// pkg/natives, per spec.md §4.9's closed catalog. A user-supplied class
// file on the classpath always takes priority (see vm's lifecycle driver);
// this table is the fallback "bootstrap class loader".
type syntheticField struct {
	Name, Descriptor string
	Static           bool
}

type syntheticMethod struct {
	Name, Descriptor string
	Static           bool
}

type syntheticClass struct {
	Super      string
	Interfaces []string
	Fields     []syntheticField
	Methods    []syntheticMethod
}

var bootstrapClasses = map[string]syntheticClass{
	"java/lang/Object": {
		Methods: []syntheticMethod{
			{Name: "registerNatives", Descriptor: "()V", Static: true},
			{Name: "getClass", Descriptor: "()Ljava/lang/Class;"},
			{Name: "hashCode", Descriptor: "()I"},
		},
	},
	"java/lang/Class": {
		Super: "java/lang/Object",
		Methods: []syntheticMethod{
			{Name: "registerNatives", Descriptor: "()V", Static: true},
			{Name: "initClassName", Descriptor: "()Ljava/lang/String;"},
			{Name: "desiredAssertionStatus0", Descriptor: "(Ljava/lang/Class;)Z", Static: true},
			{Name: "getPrimitiveClass", Descriptor: "(Ljava/lang/String;)Ljava/lang/Class;", Static: true},
		},
	},
	"java/lang/String": {
		Super: "java/lang/Object",
		Fields: []syntheticField{
			{Name: "value", Descriptor: "[B"},
			{Name: "coder", Descriptor: "B"},
		},
		Methods: []syntheticMethod{
			{Name: "length", Descriptor: "()I"},
			{Name: "charAt", Descriptor: "(I)C"},
		},
	},
	"java/lang/StringUTF16": {
		Super: "java/lang/Object",
		Methods: []syntheticMethod{
			{Name: "isBigEndian", Descriptor: "()Z", Static: true},
		},
	},
	"java/lang/System": {
		Super: "java/lang/Object",
		Fields: []syntheticField{
			{Name: "out", Descriptor: "Ljava/io/PrintStream;", Static: true},
		},
		Methods: []syntheticMethod{
			{Name: "registerNatives", Descriptor: "()V", Static: true},
			{Name: "arraycopy", Descriptor: "(Ljava/lang/Object;ILjava/lang/Object;II)V", Static: true},
			{Name: "identityHashCode", Descriptor: "(Ljava/lang/Object;)I", Static: true},
			{Name: "initProperties", Descriptor: "(Ljava/util/Properties;)Ljava/util/Properties;", Static: true},
			{Name: "nanoTime", Descriptor: "()J", Static: true},
		},
	},
	"java/lang/Float": {
		Super: "java/lang/Number",
		Methods: []syntheticMethod{
			{Name: "floatToRawIntBits", Descriptor: "(F)I", Static: true},
		},
	},
	"java/lang/Double": {
		Super: "java/lang/Number",
		Methods: []syntheticMethod{
			{Name: "doubleToRawLongBits", Descriptor: "(D)J", Static: true},
			{Name: "longBitsToDouble", Descriptor: "(J)D", Static: true},
		},
	},
	"java/lang/Number":    {Super: "java/lang/Object"},
	"java/lang/Integer":   {Super: "java/lang/Number"},
	"java/lang/Long":      {Super: "java/lang/Number"},
	"java/lang/Short":     {Super: "java/lang/Number"},
	"java/lang/Byte":      {Super: "java/lang/Number"},
	"java/lang/Boolean":   {Super: "java/lang/Object"},
	"java/lang/Character": {Super: "java/lang/Object"},
	"java/lang/Void":      {Super: "java/lang/Object"},

	"java/lang/Throwable": {
		Super: "java/lang/Object",
		Fields: []syntheticField{
			{Name: "message", Descriptor: "Ljava/lang/String;"},
		},
		Methods: []syntheticMethod{
			{Name: "fillInStackTrace", Descriptor: "(I)Ljava/lang/Throwable;"},
		},
	},
	"java/lang/Exception":                    {Super: "java/lang/Throwable"},
	"java/lang/RuntimeException":             {Super: "java/lang/Exception"},
	"java/lang/ArithmeticException":          {Super: "java/lang/RuntimeException"},
	"java/lang/NullPointerException":         {Super: "java/lang/RuntimeException"},
	"java/lang/IndexOutOfBoundsException":    {Super: "java/lang/RuntimeException"},
	"java/lang/ArrayIndexOutOfBoundsException": {Super: "java/lang/IndexOutOfBoundsException"},
	"java/lang/StringIndexOutOfBoundsException": {Super: "java/lang/IndexOutOfBoundsException"},
	"java/lang/ClassCastException":           {Super: "java/lang/RuntimeException"},
	"java/lang/NegativeArraySizeException":   {Super: "java/lang/RuntimeException"},
	"java/lang/ArrayStoreException":          {Super: "java/lang/RuntimeException"},
	"java/lang/Error":                        {Super: "java/lang/Throwable"},

	"java/lang/Thread": {
		Super: "java/lang/Object",
		Methods: []syntheticMethod{
			{Name: "registerNatives", Descriptor: "()V", Static: true},
		},
	},
	"java/lang/Runtime": {
		Super: "java/lang/Object",
		Methods: []syntheticMethod{
			{Name: "availableProcessors", Descriptor: "()I"},
		},
	},
	"java/io/PrintStream": {
		Super: "java/lang/Object",
		Methods: []syntheticMethod{
			{Name: "println", Descriptor: "()V"},
			{Name: "println", Descriptor: "(Ljava/lang/String;)V"},
			{Name: "println", Descriptor: "(I)V"},
			{Name: "println", Descriptor: "(J)V"},
			{Name: "println", Descriptor: "(Z)V"},
			{Name: "println", Descriptor: "(C)V"},
			{Name: "print", Descriptor: "(Ljava/lang/String;)V"},
			{Name: "print", Descriptor: "(I)V"},
		},
	},
	"jdk/internal/misc/Unsafe": {
		Super: "java/lang/Object",
		Methods: []syntheticMethod{
			{Name: "registerNatives", Descriptor: "()V", Static: true},
			{Name: "arrayBaseOffset0", Descriptor: "(Ljava/lang/Class;)I"},
			{Name: "arrayIndexScale0", Descriptor: "(Ljava/lang/Class;)I"},
			{Name: "addressSize0", Descriptor: "()I"},
			{Name: "isBigEndian0", Descriptor: "()Z"},
			{Name: "unalignedAccess0", Descriptor: "()Z"},
			{Name: "objectFieldOffset1", Descriptor: "(Ljava/lang/Class;Ljava/lang/String;)J"},
			{Name: "storeFence", Descriptor: "()V"},
		},
	},
	"jdk/internal/misc/VM": {
		Super: "java/lang/Object",
		Methods: []syntheticMethod{
			{Name: "initialize", Descriptor: "()V", Static: true},
			{Name: "initializeFromArchive", Descriptor: "(Ljava/lang/Class;)V", Static: true},
		},
	},
}

// BootstrapClassFile synthesizes a minimal ClassFile for a bootstrap class
// name, or reports false if name isn't one of the known bootstrap classes.
func BootstrapClassFile(name string) (*classfile.ClassFile, bool) {
	sc, ok := bootstrapClasses[name]
	if !ok {
		return nil, false
	}
	cf := &classfile.ClassFile{
		MajorVersion: classfile.MaxSupportedMajorVersion,
		RawPool:      make([]classfile.RawConstant, 1),
		AccessFlags:  classfile.AccPublic | classfile.AccSuper,
		ThisClass:    name,
		SuperClass:   sc.Super,
		Interfaces:   sc.Interfaces,
	}
	for _, f := range sc.Fields {
		af := uint16(classfile.AccPublic)
		if f.Static {
			af |= classfile.AccStatic
		}
		cf.Fields = append(cf.Fields, classfile.FieldInfo{AccessFlags: af, Name: f.Name, Descriptor: f.Descriptor})
	}
	for _, m := range sc.Methods {
		af := uint16(classfile.AccPublic | classfile.AccNative)
		if m.Static {
			af |= classfile.AccStatic
		}
		cf.Methods = append(cf.Methods, classfile.MethodInfo{AccessFlags: af, Name: m.Name, Descriptor: m.Descriptor})
	}
	return cf, true
}

// IsBootstrapClass reports whether name is in the synthetic bootstrap
// catalog, without building the ClassFile.
func IsBootstrapClass(name string) bool {
	_, ok := bootstrapClasses[name]
	return ok
}
