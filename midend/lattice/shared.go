package lattice

import (
	"math"

	"github.com/benbjohnson/immutable"
)

// The types below mention no class, so they are interned once at startup
// and shared by every TypeCtx. After init they live in an immutable map;
// contexts consult it read-only from their own intern path.
var (
	Top    Type
	Bottom Type

	Control       Type
	Abio          Type
	Memory        Type
	ReturnAddress Type
	Half          Type

	HalfFloatTop Type
	HalfFloatBot Type
	FloatTop     Type
	FloatBot     Type
	DoubleTop    Type
	DoubleBot    Type

	IntAll    *Int
	IntBool   *Int
	IntByte   *Int
	IntChar   *Int
	IntShort  *Int
	IntPos    *Int
	IntPos1   *Int
	IntZero   *Int
	IntOne    *Int
	IntMinus1 *Int

	// condition code results
	IntCC   *Int
	IntCCLT *Int
	IntCCGT *Int
	IntCCEQ *Int
	IntCCLE *Int
	IntCCGE *Int
	IntCCNE *Int

	LongAll    *Long
	LongZero   *Long
	LongOne    *Long
	LongMinus1 *Long
	LongPos    *Long

	FloatZero  *FloatCon
	FloatOne   *FloatCon
	DoubleZero *DoubleCon
	DoubleOne  *DoubleCon

	PtrNull       *Ptr
	PtrNotNull    *Ptr
	PtrBottom     *Ptr
	RawPtrBottom  *RawPtr
	RawPtrNotNull *RawPtr
	NarrowOopNull Type

	// common multi-output shapes
	TupleIfBoth           *Tuple
	TupleIfFalse          *Tuple
	TupleIfTrue           *Tuple
	TupleIfNeither        *Tuple
	TupleLoopBody         *Tuple
	TupleIntPair          *Tuple
	TupleLongPair         *Tuple
	TupleMemBar           *Tuple
	TupleStoreConditional *Tuple
)

var sharedTable *immutable.Map[uint64, []Type]

func init() {
	boot := &TypeCtx{table: make(map[uint64][]Type, 128)}

	Top = boot.intern(newSimple(KindTop))
	Bottom = boot.intern(newSimple(KindBottom))
	Control = boot.intern(newSimple(KindControl))
	Abio = boot.intern(newSimple(KindAbio))
	Memory = boot.intern(newSimple(KindMemory))
	ReturnAddress = boot.intern(newSimple(KindReturnAddress))
	Half = boot.intern(newSimple(KindHalf))

	HalfFloatTop = boot.intern(newSimple(KindHalfFloatTop))
	HalfFloatBot = boot.intern(newSimple(KindHalfFloatBot))
	FloatTop = boot.intern(newSimple(KindFloatTop))
	FloatBot = boot.intern(newSimple(KindFloatBot))
	DoubleTop = boot.intern(newSimple(KindDoubleTop))
	DoubleBot = boot.intern(newSimple(KindDoubleBot))

	IntAll = boot.MakeInt(math.MinInt32, math.MaxInt32, WidenMax).(*Int)
	IntBool = boot.MakeInt(0, 1, WidenMin).(*Int)
	IntByte = boot.MakeInt(-128, 127, WidenMin).(*Int)
	IntChar = boot.MakeInt(0, 65535, WidenMin).(*Int)
	IntShort = boot.MakeInt(-32768, 32767, WidenMin).(*Int)
	IntPos = boot.MakeInt(0, math.MaxInt32, WidenMin).(*Int)
	IntPos1 = boot.MakeInt(1, math.MaxInt32, WidenMin).(*Int)
	IntZero = boot.IntCon(0)
	IntOne = boot.IntCon(1)
	IntMinus1 = boot.IntCon(-1)

	IntCC = boot.MakeInt(-1, 1, WidenMin).(*Int)
	IntCCLT = IntMinus1
	IntCCGT = IntOne
	IntCCEQ = IntZero
	IntCCLE = boot.MakeInt(-1, 0, WidenMin).(*Int)
	IntCCGE = boot.MakeInt(0, 1, WidenMin).(*Int)
	IntCCNE = boot.MakeIntFull(-1, 1, 0, math.MaxUint32, 0, 1, WidenMin).(*Int)

	LongAll = boot.MakeLong(math.MinInt64, math.MaxInt64, WidenMax).(*Long)
	LongZero = boot.LongCon(0)
	LongOne = boot.LongCon(1)
	LongMinus1 = boot.LongCon(-1)
	LongPos = boot.MakeLong(0, math.MaxInt64, WidenMin).(*Long)

	FloatZero = boot.MakeFloatCon(0)
	FloatOne = boot.MakeFloatCon(1)
	DoubleZero = boot.MakeDoubleCon(0)
	DoubleOne = boot.MakeDoubleCon(1)

	PtrNull = boot.MakePtr(Null, 0)
	PtrNotNull = boot.MakePtr(NotNull, OffsetBot)
	PtrBottom = boot.MakePtr(BotPTR, OffsetBot)
	RawPtrBottom = boot.MakeRawPtr(BotPTR)
	RawPtrNotNull = boot.MakeRawPtr(NotNull)
	NarrowOopNull = boot.MakeNarrowOop(PtrNull)

	TupleIfBoth = boot.MakeTuple(Control, Control)
	TupleIfFalse = boot.MakeTuple(Control, Top)
	TupleIfTrue = boot.MakeTuple(Top, Control)
	TupleIfNeither = boot.MakeTuple(Top, Top)
	TupleLoopBody = boot.MakeTuple(Control, IntAll)
	TupleIntPair = boot.MakeTuple(IntAll, IntAll)
	TupleLongPair = boot.MakeTuple(LongAll, LongAll)
	TupleMemBar = boot.MakeTuple(Control, Abio, Memory, RawPtrBottom, ReturnAddress)
	TupleStoreConditional = boot.MakeTuple(Memory, IntCC)

	b := immutable.NewMapBuilder[uint64, []Type](nil)
	for h, bucket := range boot.table {
		b.Set(h, bucket)
	}
	sharedTable = b.Map()
}
