// Package natives implements the closed native method catalog (spec.md
// §4.9): the small, fixed set of java.base methods the interpreter can
// call into directly because no .class bytes back them. Grounded on
// daimatz-gojvm's vm.go executeNativeMethod (a name+descriptor keyed
// switch), generalized from its map[string]Value receiver model to this
// core's cell-based calling convention.
package natives

import (
	"fmt"
	"os"
	"time"

	"github.com/mattstark/corevm/pkg/heap"
	"github.com/mattstark/corevm/pkg/methodarea"
	"github.com/mattstark/corevm/pkg/vmerrors"
)

// Host is the slice of Engine that native methods need: class lifecycle,
// heap access, and string (de)serialization. Declared here rather than
// imported from pkg/vm to avoid an import cycle (vm calls natives, so
// natives cannot call back into vm's concrete type).
type Host interface {
	EnsureClass(name string) (*methodarea.ClassRecord, error)
	HeapRef() *heap.Heap
	AreaRef() *methodarea.MethodArea
	InternString(text string) (uint32, error)
}

// Invoke dispatches one native call. args are call-site cells exactly as
// built by the interpreter's invoke handling (receiver first, for
// instance methods). Returns the callee's return cells (nil for void).
func Invoke(host Host, className, methodName, descriptor string, args []uint32) ([]uint32, error) {
	key := className + "." + methodName + descriptor
	if fn, ok := catalog[key]; ok {
		return fn(host, args)
	}
	return nil, vmerrors.New(vmerrors.NativeMissing, "no native binding for %s.%s%s", className, methodName, descriptor)
}

type nativeFunc func(host Host, args []uint32) ([]uint32, error)

var catalog = map[string]nativeFunc{
	"java/lang/Object.registerNatives()V": noop,
	"java/lang/Object.getClass()Ljava/lang/Class;": objectGetClass,
	"java/lang/Object.hashCode()I":                 identityHashCode,

	"java/lang/Class.registerNatives()V":                            noop,
	"java/lang/Class.initClassName()Ljava/lang/String;":              classInitClassName,
	"java/lang/Class.desiredAssertionStatus0(Ljava/lang/Class;)Z":    constTrue,
	"java/lang/Class.getPrimitiveClass(Ljava/lang/String;)Ljava/lang/Class;": classGetPrimitiveClass,

	"java/lang/String.length()I":  stringLength,
	"java/lang/String.charAt(I)C": stringCharAt,

	"java/lang/StringUTF16.isBigEndian()Z": constTrue,

	"java/lang/System.registerNatives()V":                                         noop,
	"java/lang/System.arraycopy(Ljava/lang/Object;ILjava/lang/Object;II)V":         systemArraycopy,
	"java/lang/System.identityHashCode(Ljava/lang/Object;)I":                       identityHashCodeStatic,
	"java/lang/System.initProperties(Ljava/util/Properties;)Ljava/util/Properties;": systemInitProperties,
	"java/lang/System.nanoTime()J":                                                 systemNanoTime,

	"java/lang/Float.floatToRawIntBits(F)I":       identityLong1,
	"java/lang/Double.doubleToRawLongBits(D)J":    identityLong2,
	"java/lang/Double.longBitsToDouble(J)D":       identityLong2,

	"java/lang/Throwable.fillInStackTrace(I)Ljava/lang/Throwable;": fillInStackTrace,

	"jdk/internal/misc/Unsafe.registerNatives()V":                                    noop,
	"jdk/internal/misc/Unsafe.arrayBaseOffset0(Ljava/lang/Class;)I":                  constZero,
	"jdk/internal/misc/Unsafe.arrayIndexScale0(Ljava/lang/Class;)I":                  constZero,
	"jdk/internal/misc/Unsafe.addressSize0()I":                                       constZero,
	"jdk/internal/misc/Unsafe.isBigEndian0()Z":                                       constTrue,
	"jdk/internal/misc/Unsafe.unalignedAccess0()Z":                                   constTrue,
	"jdk/internal/misc/Unsafe.objectFieldOffset1(Ljava/lang/Class;Ljava/lang/String;)J": unsafeObjectFieldOffset1,
	"jdk/internal/misc/Unsafe.storeFence()V":                                         noop,

	"jdk/internal/misc/VM.initialize()V":                            noop,
	"jdk/internal/misc/VM.initializeFromArchive(Ljava/lang/Class;)V": noop,

	"java/lang/Runtime.availableProcessors()I": constOne,
	"java/lang/Thread.registerNatives()V":      noop,

	"java/io/PrintStream.println()V":                   printlnEmpty,
	"java/io/PrintStream.println(Ljava/lang/String;)V": printlnString,
	"java/io/PrintStream.println(I)V":                  printlnInt,
	"java/io/PrintStream.println(J)V":                  printlnLong,
	"java/io/PrintStream.println(Z)V":                  printlnBool,
	"java/io/PrintStream.println(C)V":                  printlnChar,
	"java/io/PrintStream.print(Ljava/lang/String;)V":    printString,
	"java/io/PrintStream.print(I)V":                     printInt,
}

func noop(host Host, args []uint32) ([]uint32, error) { return nil, nil }

func constZero(host Host, args []uint32) ([]uint32, error) { return []uint32{0}, nil }
func constOne(host Host, args []uint32) ([]uint32, error)  { return []uint32{1}, nil }
func constTrue(host Host, args []uint32) ([]uint32, error) { return []uint32{1}, nil }

// identityLong1/identityLong2 pass call-site bits straight through:
// Float.floatToRawIntBits and the Double<->raw-bits pair need no
// conversion because the interpreter already stores floats/doubles as
// their IEEE-754 bit pattern in each cell.
func identityLong1(host Host, args []uint32) ([]uint32, error) { return []uint32{args[0]}, nil }
func identityLong2(host Host, args []uint32) ([]uint32, error) { return []uint32{args[0], args[1]}, nil }

func identityHashCode(host Host, args []uint32) ([]uint32, error) {
	return []uint32{args[0] & 0x7fffffff}, nil
}

func identityHashCodeStatic(host Host, args []uint32) ([]uint32, error) {
	return identityHashCode(host, args)
}

func objectGetClass(host Host, args []uint32) ([]uint32, error) {
	ref := heap.Reference(args[0])
	obj, err := host.HeapRef().Load(ref)
	if err != nil {
		return nil, err
	}
	rec, err := host.EnsureClass(obj.TypeDescriptor)
	if err != nil {
		return nil, err
	}
	return []uint32{uint32(rec.Mirror)}, nil
}

func classInitClassName(host Host, args []uint32) ([]uint32, error) {
	ref := heap.Reference(args[0])
	obj, err := host.HeapRef().Load(ref)
	if err != nil {
		return nil, err
	}
	s, err := host.InternString(obj.TypeDescriptor)
	if err != nil {
		return nil, err
	}
	return []uint32{s}, nil
}

// primitiveWrapperClasses maps a primitive type's name (as passed to
// getPrimitiveClass) to the boxed wrapper class standing in for its Class
// mirror, since this core has no dedicated primitive-Class representation.
var primitiveWrapperClasses = map[string]string{
	"boolean": "java/lang/Boolean",
	"byte":    "java/lang/Byte",
	"char":    "java/lang/Character",
	"short":   "java/lang/Short",
	"int":     "java/lang/Integer",
	"long":    "java/lang/Long",
	"float":   "java/lang/Float",
	"double":  "java/lang/Double",
	"void":    "java/lang/Void",
}

func classGetPrimitiveClass(host Host, args []uint32) ([]uint32, error) {
	name, err := stringToGo(host, heap.Reference(args[0]))
	if err != nil {
		return nil, err
	}
	wrapper, ok := primitiveWrapperClasses[name]
	if !ok {
		return nil, vmerrors.New(vmerrors.NativeMissing, "Class.getPrimitiveClass: unknown primitive name %q", name)
	}
	rec, err := host.EnsureClass(wrapper)
	if err != nil {
		return nil, err
	}
	return []uint32{uint32(rec.Mirror)}, nil
}

func stringValueArray(host Host, ref heap.Reference) (*heap.Object, error) {
	if host.HeapRef().IsNull(ref) {
		return nil, vmerrors.New(vmerrors.NativeMissing, "String receiver is null")
	}
	obj, err := host.HeapRef().Load(ref)
	if err != nil {
		return nil, err
	}
	offset, err := host.AreaRef().FieldOffset("java/lang/String", "value")
	if err != nil {
		return nil, err
	}
	return host.HeapRef().Load(heap.Reference(obj.Cells[offset]))
}

// charAtBytes decodes the big-endian UTF-16 byte pair at character index i
// out of a "[B"-typed, coder==1 String "value" array.
func charAtBytes(cells []uint32, i int) uint32 {
	return (cells[i*2]<<8 | cells[i*2+1]) & 0xffff
}

func stringLength(host Host, args []uint32) ([]uint32, error) {
	arr, err := stringValueArray(host, heap.Reference(args[0]))
	if err != nil {
		return nil, err
	}
	return []uint32{uint32(len(arr.Cells) / 2)}, nil
}

func stringCharAt(host Host, args []uint32) ([]uint32, error) {
	arr, err := stringValueArray(host, heap.Reference(args[0]))
	if err != nil {
		return nil, err
	}
	index := int32(args[1])
	length := len(arr.Cells) / 2
	if index < 0 || int(index) >= length {
		return nil, vmerrors.New(vmerrors.NativeMissing, "String.charAt: index %d out of bounds for length %d", index, length)
	}
	return []uint32{charAtBytes(arr.Cells, int(index))}, nil
}

func systemArraycopy(host Host, args []uint32) ([]uint32, error) {
	src, srcPos, dst, dstPos, length := heap.Reference(args[0]), int32(args[1]), heap.Reference(args[2]), int32(args[3]), int32(args[4])
	srcObj, err := host.HeapRef().Load(src)
	if err != nil {
		return nil, err
	}
	dstObj, err := host.HeapRef().Load(dst)
	if err != nil {
		return nil, err
	}
	if srcPos < 0 || dstPos < 0 || length < 0 ||
		int(srcPos+length) > len(srcObj.Cells) || int(dstPos+length) > len(dstObj.Cells) {
		return nil, vmerrors.New(vmerrors.NativeMissing, "System.arraycopy: bounds out of range")
	}
	copy(dstObj.Cells[dstPos:dstPos+length], srcObj.Cells[srcPos:srcPos+length])
	return nil, nil
}

func systemInitProperties(host Host, args []uint32) ([]uint32, error) {
	return []uint32{args[0]}, nil
}

func systemNanoTime(host Host, args []uint32) ([]uint32, error) {
	v := time.Now().UnixNano()
	return []uint32{uint32(uint64(v) >> 32), uint32(uint64(v))}, nil
}

func fillInStackTrace(host Host, args []uint32) ([]uint32, error) {
	return []uint32{args[0]}, nil
}

// stringToGo decodes a java/lang/String instance's "[B"-typed, coder==1
// "value" array (one big-endian UTF-16 byte pair per code unit, per
// internString's layout) into a Go string. No surrogate-pair handling:
// spec.md's string scenarios stay in the BMP.
func stringToGo(host Host, ref heap.Reference) (string, error) {
	arr, err := stringValueArray(host, ref)
	if err != nil {
		return "", err
	}
	length := len(arr.Cells) / 2
	runes := make([]rune, length)
	for i := 0; i < length; i++ {
		runes[i] = rune(uint16(charAtBytes(arr.Cells, i)))
	}
	return string(runes), nil
}

// The PrintStream family writes straight to process stdout: spec.md §4.9's
// native catalog table treats System.out.println/print as the one
// observable side effect a running program produces, grounded on
// original_source/run.rs's println workaround generalized to the full
// println/print overload set the interpreter's invoke dispatch can select.
func printlnEmpty(host Host, args []uint32) ([]uint32, error) {
	fmt.Fprintln(os.Stdout)
	return nil, nil
}

func printlnString(host Host, args []uint32) ([]uint32, error) {
	s, err := stringToGo(host, heap.Reference(args[1]))
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(os.Stdout, s)
	return nil, nil
}

func printlnInt(host Host, args []uint32) ([]uint32, error) {
	fmt.Fprintln(os.Stdout, int32(args[1]))
	return nil, nil
}

func printlnLong(host Host, args []uint32) ([]uint32, error) {
	fmt.Fprintln(os.Stdout, int64(uint64(args[1])<<32|uint64(args[2])))
	return nil, nil
}

func printlnBool(host Host, args []uint32) ([]uint32, error) {
	fmt.Fprintln(os.Stdout, args[1] != 0)
	return nil, nil
}

func printlnChar(host Host, args []uint32) ([]uint32, error) {
	fmt.Fprintln(os.Stdout, string(rune(uint16(args[1]))))
	return nil, nil
}

func printString(host Host, args []uint32) ([]uint32, error) {
	s, err := stringToGo(host, heap.Reference(args[1]))
	if err != nil {
		return nil, err
	}
	fmt.Fprint(os.Stdout, s)
	return nil, nil
}

func printInt(host Host, args []uint32) ([]uint32, error) {
	fmt.Fprint(os.Stdout, int32(args[1]))
	return nil, nil
}

func unsafeObjectFieldOffset1(host Host, args []uint32) ([]uint32, error) {
	classMirror := heap.Reference(args[1])
	nameRef := heap.Reference(args[2])

	classObj, err := host.HeapRef().Load(classMirror)
	if err != nil {
		return nil, err
	}
	name, err := stringToGo(host, nameRef)
	if err != nil {
		return nil, err
	}

	offset, err := host.AreaRef().FieldOffset(classObj.TypeDescriptor, name)
	if err != nil {
		return nil, err
	}
	v := int64(offset)
	return []uint32{uint32(uint64(v) >> 32), uint32(uint64(v))}, nil
}
