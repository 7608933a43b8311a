package vm

import (
	"io"
	"os"
	"testing"

	"github.com/mattstark/corevm/pkg/classfile"
	"github.com/mattstark/corevm/pkg/methodarea"
	"github.com/stretchr/testify/require"
)

// cpBuilder assembles a classfile.RawConstant pool by hand, the way a real
// compiler's constant-pool writer would, for bytecode fixtures that need to
// resolve symbolic references.
type cpBuilder struct {
	pool []classfile.RawConstant
}

func newCPBuilder() *cpBuilder {
	return &cpBuilder{pool: []classfile.RawConstant{nil}} // index 0 is unused
}

func (b *cpBuilder) utf8(s string) uint16 {
	b.pool = append(b.pool, classfile.RawUtf8{Bytes: []byte(s)})
	return uint16(len(b.pool) - 1)
}

func (b *cpBuilder) class(name string) uint16 {
	nameIdx := b.utf8(name)
	b.pool = append(b.pool, classfile.RawClass{NameIndex: nameIdx})
	return uint16(len(b.pool) - 1)
}

func (b *cpBuilder) nameAndType(name, desc string) uint16 {
	nameIdx := b.utf8(name)
	descIdx := b.utf8(desc)
	b.pool = append(b.pool, classfile.RawNameAndType{NameIndex: nameIdx, DescriptorIndex: descIdx})
	return uint16(len(b.pool) - 1)
}

func (b *cpBuilder) methodref(class, name, desc string) uint16 {
	classIdx := b.class(class)
	natIdx := b.nameAndType(name, desc)
	b.pool = append(b.pool, classfile.RawMethodref{ClassIndex: classIdx, NameAndTypeIndex: natIdx})
	return uint16(len(b.pool) - 1)
}

func (b *cpBuilder) fieldref(class, name, desc string) uint16 {
	classIdx := b.class(class)
	natIdx := b.nameAndType(name, desc)
	b.pool = append(b.pool, classfile.RawFieldref{ClassIndex: classIdx, NameAndTypeIndex: natIdx})
	return uint16(len(b.pool) - 1)
}

func (b *cpBuilder) stringConst(text string) uint16 {
	textIdx := b.utf8(text)
	b.pool = append(b.pool, classfile.RawString{StringIndex: textIdx})
	return uint16(len(b.pool) - 1)
}

// fakeLoader resolves classes from an in-memory map instead of a directory,
// so fixtures never touch the filesystem.
type fakeLoader map[string]*classfile.ClassFile

func (l fakeLoader) Load(name string) (*classfile.ClassFile, error) {
	if cf, ok := l[name]; ok {
		return cf, nil
	}
	return nil, &classNotFoundSentinel{name: name}
}

type classNotFoundSentinel struct{ name string }

func (e *classNotFoundSentinel) Error() string { return "class not found: " + e.name }

func simpleMethod(access uint16, name, desc string, maxLocals, maxStack uint16, code []byte, handlers []classfile.ExceptionHandler) classfile.MethodInfo {
	return classfile.MethodInfo{
		AccessFlags: access,
		Name:        name,
		Descriptor:  desc,
		Code: &classfile.CodeAttribute{
			MaxStack:       maxStack,
			MaxLocals:      maxLocals,
			Code:           code,
			ExceptionTable: handlers,
		},
	}
}

func newEngineWithClasses(classes map[string]*classfile.ClassFile) *Engine {
	return NewEngine(fakeLoader(classes))
}

func TestIntegrationArithmeticAndReturn(t *testing.T) {
	// static int add(int, int) { return a + b; }
	code := []byte{
		0x1a,       // iload_0
		0x1b,       // iload_1
		0x60,       // iadd
		0xac,       // ireturn
	}
	cf := &classfile.ClassFile{
		ThisClass: "Calc",
		Methods:   []classfile.MethodInfo{simpleMethod(classfile.AccStatic, "add", "(II)I", 2, 2, code, nil)},
	}
	eng := newEngineWithClasses(map[string]*classfile.ClassFile{"Calc": cf})

	rec, err := eng.EnsureClass("Calc")
	require.NoError(t, err)
	method := rec.Parsed.FindMethod("add", "(II)I")
	require.NotNil(t, method)

	ret, err := eng.invokeMethod(rec, method, []uint32{uint32(int32(3)), uint32(int32(4))})
	require.NoError(t, err)
	require.Equal(t, []uint32{uint32(int32(7))}, ret)
}

func TestIntegrationConditionalBranch(t *testing.T) {
	// static int sign(int x) { if (x <= 0) return 0; return 1; }
	code := []byte{
		0x1a,       // iload_0
		0x9e, 0x00, 0x05, // ifle: branch to pc=6 (iconst_0) if x<=0
		0x04,       // iconst_1
		0xac,       // ireturn
		0x03,       // iconst_0
		0xac,       // ireturn
	}
	cf := &classfile.ClassFile{
		ThisClass: "Calc",
		Methods:   []classfile.MethodInfo{simpleMethod(classfile.AccStatic, "sign", "(I)I", 1, 1, code, nil)},
	}
	eng := newEngineWithClasses(map[string]*classfile.ClassFile{"Calc": cf})
	rec, err := eng.EnsureClass("Calc")
	require.NoError(t, err)
	method := rec.Parsed.FindMethod("sign", "(I)I")

	ret, err := eng.invokeMethod(rec, method, []uint32{uint32(int32(5))})
	require.NoError(t, err)
	require.Equal(t, []uint32{uint32(int32(1))}, ret)

	ret, err = eng.invokeMethod(rec, method, []uint32{uint32(int32(-5))})
	require.NoError(t, err)
	require.Equal(t, []uint32{uint32(int32(0))}, ret)
}

func TestIntegrationVirtualDispatch(t *testing.T) {
	baseCP := newCPBuilder()
	// Base.greet()I: return 1;
	baseCode := []byte{0x04, 0xac} // iconst_1, ireturn
	baseCf := &classfile.ClassFile{
		ThisClass: "Base",
		RawPool:   baseCP.pool,
		Methods:   []classfile.MethodInfo{simpleMethod(0, "greet", "()I", 1, 1, baseCode, nil)},
	}

	derivedCP := newCPBuilder()
	// Derived.greet()I: return 2;
	derivedCode := []byte{0x05, 0xac} // iconst_2, ireturn
	derivedCf := &classfile.ClassFile{
		ThisClass:  "Derived",
		SuperClass: "Base",
		RawPool:    derivedCP.pool,
		Methods:    []classfile.MethodInfo{simpleMethod(0, "greet", "()I", 1, 1, derivedCode, nil)},
	}

	// caller: static int call(Derived d) { return ((Base) d).greet(); }
	callCP := newCPBuilder()
	greetRef := callCP.methodref("Base", "greet", "()I")
	callCode := []byte{
		0x2a, // aload_0 (receiver)
		0xb6, byte(greetRef >> 8), byte(greetRef), // invokevirtual
		0xac, // ireturn
	}
	callerCf := &classfile.ClassFile{
		ThisClass: "Caller",
		RawPool:   callCP.pool,
		Methods:   []classfile.MethodInfo{simpleMethod(classfile.AccStatic, "call", "(LDerived;)I", 1, 1, callCode, nil)},
	}

	eng := newEngineWithClasses(map[string]*classfile.ClassFile{
		"Base": baseCf, "Derived": derivedCf, "Caller": callerCf,
	})

	derivedRec, err := eng.EnsureClass("Derived")
	require.NoError(t, err)
	instanceRef := eng.Heap.Store("Derived", make([]uint32, derivedRec.InstanceWidth()))

	callerRec, err := eng.EnsureClass("Caller")
	require.NoError(t, err)
	method := callerRec.Parsed.FindMethod("call", "(LDerived;)I")

	ret, err := eng.invokeMethod(callerRec, method, []uint32{uint32(instanceRef)})
	require.NoError(t, err)
	require.Equal(t, []uint32{uint32(int32(2))}, ret, "virtual dispatch should resolve to Derived's override, not Base's")
}

func TestIntegrationStaticInitAndField(t *testing.T) {
	cp := newCPBuilder()
	fieldRef := cp.fieldref("Counter", "value", "I")
	// <clinit>: value = 42;
	clinitCode := []byte{
		0x10, 42, // bipush 42
		0xb3, byte(fieldRef >> 8), byte(fieldRef), // putstatic
		0xb1, // return
	}
	// static int getValue() { return value; }
	getCode := []byte{
		0xb2, byte(fieldRef >> 8), byte(fieldRef), // getstatic
		0xac, // ireturn
	}
	cf := &classfile.ClassFile{
		ThisClass: "Counter",
		RawPool:   cp.pool,
		Fields:    []classfile.FieldInfo{{AccessFlags: classfile.AccStatic, Name: "value", Descriptor: "I"}},
		Methods: []classfile.MethodInfo{
			simpleMethod(classfile.AccStatic, "<clinit>", "()V", 0, 1, clinitCode, nil),
			simpleMethod(classfile.AccStatic, "getValue", "()I", 0, 1, getCode, nil),
		},
	}
	eng := newEngineWithClasses(map[string]*classfile.ClassFile{"Counter": cf})

	rec, err := eng.EnsureClass("Counter")
	require.NoError(t, err)
	require.Equal(t, methodarea.Initialized, rec.State)

	method := rec.Parsed.FindMethod("getValue", "()I")
	ret, err := eng.invokeMethod(rec, method, nil)
	require.NoError(t, err)
	require.Equal(t, []uint32{uint32(int32(42))}, ret)
}

func TestIntegrationExceptionHandling(t *testing.T) {
	// static int safeDiv(int a, int b) {
	//   try { return a / b; } catch (Throwable e) { return -1; }
	// }
	// The handler entry is a catch-all (CatchType 0).
	code := []byte{
		0x1a,       // 0: iload_0
		0x1b,       // 1: iload_1
		0x6c,       // 2: idiv
		0xac,       // 3: ireturn
		0x4c,       // 4: astore_1 (handler: discard exception ref)
		0x02,       // 5: iconst_m1
		0xac,       // 6: ireturn
	}
	handlers := []classfile.ExceptionHandler{
		{StartPC: 0, EndPC: 4, HandlerPC: 4, CatchType: 0},
	}
	cf := &classfile.ClassFile{
		ThisClass: "Calc",
		Methods:   []classfile.MethodInfo{simpleMethod(classfile.AccStatic, "safeDiv", "(II)I", 2, 2, code, handlers)},
	}
	eng := newEngineWithClasses(map[string]*classfile.ClassFile{"Calc": cf})
	rec, err := eng.EnsureClass("Calc")
	require.NoError(t, err)
	method := rec.Parsed.FindMethod("safeDiv", "(II)I")

	ret, err := eng.invokeMethod(rec, method, []uint32{uint32(int32(10)), uint32(int32(0))})
	require.NoError(t, err)
	require.Equal(t, []uint32{uint32(int32(-1))}, ret)

	ret, err = eng.invokeMethod(rec, method, []uint32{uint32(int32(10)), uint32(int32(2))})
	require.NoError(t, err)
	require.Equal(t, []uint32{uint32(int32(5))}, ret)
}

func TestIntegrationSystemOutPrintln(t *testing.T) {
	// static void run() { System.out.println(7); }
	cp := newCPBuilder()
	outFieldRef := cp.fieldref("java/lang/System", "out", "Ljava/io/PrintStream;")
	printlnRef := cp.methodref("java/io/PrintStream", "println", "(I)V")
	code := []byte{
		0xb2, byte(outFieldRef >> 8), byte(outFieldRef), // getstatic System.out
		0x10, 7, // bipush 7
		0xb6, byte(printlnRef >> 8), byte(printlnRef), // invokevirtual println(I)V
		0xb1, // return
	}
	cf := &classfile.ClassFile{
		ThisClass: "Hello",
		RawPool:   cp.pool,
		Methods:   []classfile.MethodInfo{simpleMethod(classfile.AccStatic, "run", "()V", 0, 2, code, nil)},
	}
	eng := newEngineWithClasses(map[string]*classfile.ClassFile{"Hello": cf})
	rec, err := eng.EnsureClass("Hello")
	require.NoError(t, err)
	method := rec.Parsed.FindMethod("run", "()V")

	r, w, err := os.Pipe()
	require.NoError(t, err)
	origStdout := os.Stdout
	os.Stdout = w
	_, err = eng.invokeMethod(rec, method, nil)
	w.Close()
	os.Stdout = origStdout
	require.NoError(t, err)

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "7\n", string(out))
}

func TestIntegrationStringLengthNative(t *testing.T) {
	cp := newCPBuilder()
	strIdx := cp.stringConst("hi")
	lengthRef := cp.methodref("java/lang/String", "length", "()I")
	code := []byte{
		0x12, byte(strIdx), // ldc
		0xb6, byte(lengthRef >> 8), byte(lengthRef), // invokevirtual
		0xac, // ireturn
	}
	cf := &classfile.ClassFile{
		ThisClass: "StrTest",
		RawPool:   cp.pool,
		Methods:   []classfile.MethodInfo{simpleMethod(classfile.AccStatic, "run", "()I", 0, 2, code, nil)},
	}
	eng := newEngineWithClasses(map[string]*classfile.ClassFile{"StrTest": cf})
	rec, err := eng.EnsureClass("StrTest")
	require.NoError(t, err)
	method := rec.Parsed.FindMethod("run", "()I")

	ret, err := eng.invokeMethod(rec, method, nil)
	require.NoError(t, err)
	require.Equal(t, []uint32{uint32(int32(2))}, ret)
}
