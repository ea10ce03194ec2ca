// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package haste

import "container/heap"

// fieldPathMaxDepth bounds the field path stack. The wire format rarely
// nests deeper than 6-7 levels (class -> struct -> array -> struct -> leaf);
// this mirrors the "typically 7 slots" sizing called out in the data model.
const fieldPathMaxDepth = 7

// FieldPath is a fixed-capacity stack of small indices identifying a single
// root-to-leaf position in a serializer tree. It is cheap to copy: a plain
// array plus a length cursor, no heap allocation.
type FieldPath struct {
	data [fieldPathMaxDepth]int32
	last int // index of the last valid element; -1 would mean empty.
}

// newFieldPath returns the op-stream's initial state: a single element of
// -1 with the cursor at index 0.
func newFieldPath() FieldPath {
	fp := FieldPath{}
	fp.data[0] = -1
	fp.last = 0
	return fp
}

// Get returns the path element at depth i.
func (fp *FieldPath) Get(i int) int32 { return fp.data[i] }

// Last returns the deepest valid index in the path (path length - 1).
func (fp *FieldPath) Last() int { return fp.last }

func (fp *FieldPath) push(v int32) {
	fp.last++
	fp.data[fp.last] = v
}

func (fp *FieldPath) pop(n int) {
	fp.last -= n
}

// fieldPathOp is the closed set of ~40 operations the wire's prefix-coded
// op stream selects between. Names follow the publicly documented Source 2
// field-path operator table, the same set independent reimplementations of
// this wire format converge on.
type fieldPathOp uint8

const (
	opPlusOne fieldPathOp = iota
	opPlusTwo
	opPlusThree
	opPlusFour
	opPlusN
	opPushOneLeftDeltaZeroRightZero
	opPushOneLeftDeltaZeroRightNonZero
	opPushOneLeftDeltaOneRightZero
	opPushOneLeftDeltaOneRightNonZero
	opPushOneLeftDeltaNRightZero
	opPushOneLeftDeltaNRightNonZero
	opPushOneLeftDeltaNRightNonZeroPack6Bits
	opPushOneLeftDeltaNRightNonZeroPack8Bits
	opPushTwoLeftDeltaZero
	opPushTwoPack5LeftDeltaZero
	opPushThreeLeftDeltaZero
	opPushThreePack5LeftDeltaZero
	opPushTwoLeftDeltaOne
	opPushTwoPack5LeftDeltaOne
	opPushThreeLeftDeltaOne
	opPushThreePack5LeftDeltaOne
	opPushTwoLeftDeltaN
	opPushTwoPack5LeftDeltaN
	opPushThreeLeftDeltaN
	opPushThreePack5LeftDeltaN
	opPushN
	opPushNAndNonTopological
	opPopOnePlusOne
	opPopOnePlusN
	opPopAllButOnePlusOne
	opPopAllButOnePlusN
	opPopAllButOnePlusNPack3Bits
	opPopAllButOnePlusNPack6Bits
	opPopNPlusOne
	opPopNPlusN
	opPopNAndNonTopographical
	opNonTopoComplex
	opNonTopoPenultimatePlusOne
	opNonTopoComplexPack4Bits
	opFieldPathEncodeFinish

	numFieldPathOps
)

// fieldPathOpWeight is this operator's empirically observed frequency in
// real replay streams. The wire format's op stream is prefix-coded by a
// canonical Huffman tree built from these weights: the more common an op,
// the shorter its code. Both the ordering and the relative magnitudes of the
// weights determine the resulting codes, so these values reproduce the
// well-known public weighting of this table.
var fieldPathOpWeights = [numFieldPathOps]int{
	opPlusOne:                                36271,
	opFieldPathEncodeFinish:                  10334,
	opPlusTwo:                                3033,
	opPushOneLeftDeltaNRightNonZeroPack6Bits:  2317,
	opPushOneLeftDeltaOneRightNonZero:         1930,
	opPopOnePlusOne:                          1591,
	opPushOneLeftDeltaNRightNonZero:           1404,
	opPushOneLeftDeltaOneRightZero:            973,
	opNonTopoComplex:                          972,
	opPopAllButOnePlusOne:                     826,
	opPushOneLeftDeltaZeroRightZero:           726,
	opPushOneLeftDeltaZeroRightNonZero:        730,
	opPlusN:                                   530,
	opPushOneLeftDeltaNRightZero:              475,
	opPushOneLeftDeltaNRightNonZeroPack8Bits:  291,
	opPopAllButOnePlusNPack3Bits:               495,
	opPopAllButOnePlusNPack6Bits:               282,
	opPopAllButOnePlusN:                       253,
	opPushN:                                   261,
	opNonTopoPenultimatePlusOne:               260,
	opNonTopoComplexPack4Bits:                 217,
	opPushTwoLeftDeltaZero:                    216,
	opPopNPlusOne:                             133,
	opPlusThree:                               132,
	opPopNAndNonTopographical:                 88,
	opPopNPlusN:                               79,
	opPushThreeLeftDeltaZero:                  40,
	opPushTwoPack5LeftDeltaZero:               34,
	opPushThreePack5LeftDeltaZero:              33,
	opPushTwoLeftDeltaOne:                     31,
	opPushThreeLeftDeltaOne:                   30,
	opPushTwoLeftDeltaN:                       28,
	opPushThreeLeftDeltaN:                     27,
	opPushTwoPack5LeftDeltaOne:                22,
	opPushThreePack5LeftDeltaOne:               19,
	opPushTwoPack5LeftDeltaN:                  17,
	opPushThreePack5LeftDeltaN:                 16,
	opPlusFour:                                13,
	opPushNAndNonTopological:                  10,
	opPopOnePlusN:                             4,
}

// --- canonical Huffman tree construction -----------------------------------

type huffmanNode struct {
	weight      int
	op          fieldPathOp
	isLeaf      bool
	left, right *huffmanNode
}

type huffmanHeap []*huffmanNode

func (h huffmanHeap) Len() int            { return len(h) }
func (h huffmanHeap) Less(i, j int) bool  { return h[i].weight < h[j].weight }
func (h huffmanHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *huffmanHeap) Push(x interface{}) { *h = append(*h, x.(*huffmanNode)) }
func (h *huffmanHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// fieldPathHuffmanRoot is built once at package init from the weight table
// above; decodeFieldPathOp walks it one bit at a time per incoming op.
var fieldPathHuffmanRoot = buildFieldPathHuffman()

func buildFieldPathHuffman() *huffmanNode {
	h := &huffmanHeap{}
	heap.Init(h)
	for op := fieldPathOp(0); op < numFieldPathOps; op++ {
		w := fieldPathOpWeights[op]
		if w <= 0 {
			w = 1
		}
		heap.Push(h, &huffmanNode{weight: w, op: op, isLeaf: true})
	}

	for h.Len() > 1 {
		a := heap.Pop(h).(*huffmanNode)
		b := heap.Pop(h).(*huffmanNode)
		heap.Push(h, &huffmanNode{weight: a.weight + b.weight, left: a, right: b})
	}
	return heap.Pop(h).(*huffmanNode)
}

// decodeFieldPathOp walks the Huffman tree one bit at a time: 0 goes left, 1
// goes right, matching the convention the bit reader's LSB-first bit order
// implies for this stream.
func decodeFieldPathOp(br *BitReader) fieldPathOp {
	node := fieldPathHuffmanRoot
	for !node.isLeaf {
		if br.readBool() {
			node = node.right
		} else {
			node = node.left
		}
	}
	return node.op
}

// --- op execution -----------------------------------------------------------

// applyFieldPathOp performs one operator against (fp, br), per the shapes
// described in §4.5: increment-last-by-constant, push-new-index,
// pop-levels, replace-last-with-wider-varint, or terminate. It returns true
// only for opFieldPathEncodeFinish, which ends the op stream; after any
// other op, fp holds a complete path that the caller emits.
func applyFieldPathOp(op fieldPathOp, fp *FieldPath, br *BitReader) bool {
	switch op {
	case opPlusOne:
		fp.data[fp.last]++
	case opPlusTwo:
		fp.data[fp.last] += 2
	case opPlusThree:
		fp.data[fp.last] += 3
	case opPlusFour:
		fp.data[fp.last] += 4
	case opPlusN:
		fp.data[fp.last] += int32(br.readUbitvar()) + 5

	case opPushOneLeftDeltaZeroRightZero:
		fp.push(0)
	case opPushOneLeftDeltaZeroRightNonZero:
		fp.push(int32(br.readUbitvar()))
	case opPushOneLeftDeltaOneRightZero:
		fp.data[fp.last]++
		fp.push(0)
	case opPushOneLeftDeltaOneRightNonZero:
		fp.data[fp.last]++
		fp.push(int32(br.readUbitvar()))
	case opPushOneLeftDeltaNRightZero:
		fp.data[fp.last] += int32(br.readUbitvar())
		fp.push(0)
	case opPushOneLeftDeltaNRightNonZero:
		fp.data[fp.last] += int32(br.readUbitvar()) + 2
		fp.push(int32(br.readUbitvar()) + 1)
	case opPushOneLeftDeltaNRightNonZeroPack6Bits:
		fp.data[fp.last] += int32(br.readUbitlong(3)) + 2
		fp.push(int32(br.readUbitlong(3)) + 1)
	case opPushOneLeftDeltaNRightNonZeroPack8Bits:
		fp.data[fp.last] += int32(br.readUbitlong(4)) + 2
		fp.push(int32(br.readUbitlong(4)) + 1)

	case opPushTwoLeftDeltaZero:
		fp.push(int32(br.readUbitvar()))
		fp.push(int32(br.readUbitvar()))
	case opPushTwoPack5LeftDeltaZero:
		fp.push(int32(br.readUbitlong(5)))
		fp.push(int32(br.readUbitlong(5)))
	case opPushThreeLeftDeltaZero:
		fp.push(int32(br.readUbitvar()))
		fp.push(int32(br.readUbitvar()))
		fp.push(int32(br.readUbitvar()))
	case opPushThreePack5LeftDeltaZero:
		fp.push(int32(br.readUbitlong(5)))
		fp.push(int32(br.readUbitlong(5)))
		fp.push(int32(br.readUbitlong(5)))
	case opPushTwoLeftDeltaOne:
		fp.data[fp.last]++
		fp.push(int32(br.readUbitvar()))
		fp.push(int32(br.readUbitvar()))
	case opPushTwoPack5LeftDeltaOne:
		fp.data[fp.last]++
		fp.push(int32(br.readUbitlong(5)))
		fp.push(int32(br.readUbitlong(5)))
	case opPushThreeLeftDeltaOne:
		fp.data[fp.last]++
		fp.push(int32(br.readUbitvar()))
		fp.push(int32(br.readUbitvar()))
		fp.push(int32(br.readUbitvar()))
	case opPushThreePack5LeftDeltaOne:
		fp.data[fp.last]++
		fp.push(int32(br.readUbitlong(5)))
		fp.push(int32(br.readUbitlong(5)))
		fp.push(int32(br.readUbitlong(5)))
	case opPushTwoLeftDeltaN:
		fp.data[fp.last] += int32(br.readUbitvar())
		fp.push(int32(br.readUbitvar()))
		fp.push(int32(br.readUbitvar()))
	case opPushTwoPack5LeftDeltaN:
		fp.data[fp.last] += int32(br.readUbitlong(5))
		fp.push(int32(br.readUbitlong(5)))
		fp.push(int32(br.readUbitlong(5)))
	case opPushThreeLeftDeltaN:
		fp.data[fp.last] += int32(br.readUbitvar())
		fp.push(int32(br.readUbitvar()))
		fp.push(int32(br.readUbitvar()))
		fp.push(int32(br.readUbitvar()))
	case opPushThreePack5LeftDeltaN:
		fp.data[fp.last] += int32(br.readUbitlong(5))
		fp.push(int32(br.readUbitlong(5)))
		fp.push(int32(br.readUbitlong(5)))
		fp.push(int32(br.readUbitlong(5)))

	case opPushN:
		n := int(br.readUbitvar())
		fp.data[fp.last] += int32(br.readUbitvar())
		for i := 0; i < n; i++ {
			fp.push(int32(br.readUbitvar()))
		}
	case opPushNAndNonTopological:
		for i := 0; i <= fp.last; i++ {
			if br.readBool() {
				fp.data[i] += br.readVarint32()
			}
		}
		n := int(br.readUbitvar())
		for i := 0; i < n; i++ {
			fp.push(int32(br.readUbitvar()))
		}

	case opPopOnePlusOne:
		fp.pop(1)
		fp.data[fp.last]++
	case opPopOnePlusN:
		fp.pop(1)
		fp.data[fp.last] += int32(br.readUbitvar()) + 1
	case opPopAllButOnePlusOne:
		fp.pop(fp.last)
		fp.data[fp.last]++
	case opPopAllButOnePlusN:
		fp.pop(fp.last)
		fp.data[fp.last] += int32(br.readUbitvar()) + 1
	case opPopAllButOnePlusNPack3Bits:
		fp.pop(fp.last)
		fp.data[fp.last] += int32(br.readUbitlong(3)) + 1
	case opPopAllButOnePlusNPack6Bits:
		fp.pop(fp.last)
		fp.data[fp.last] += int32(br.readUbitlong(6)) + 1
	case opPopNPlusOne:
		n := int(br.readUbitvar())
		fp.pop(n)
		fp.data[fp.last]++
	case opPopNPlusN:
		n := int(br.readUbitvar())
		fp.pop(n)
		fp.data[fp.last] += br.readVarint32()
	case opPopNAndNonTopographical:
		n := int(br.readUbitvar())
		fp.pop(n)
		for i := 0; i <= fp.last; i++ {
			if br.readBool() {
				fp.data[i] += br.readVarint32()
			}
		}

	case opNonTopoComplex:
		for i := 0; i <= fp.last; i++ {
			if br.readBool() {
				fp.data[i] += br.readVarint32()
			}
		}
	case opNonTopoPenultimatePlusOne:
		fp.data[fp.last-1]++
	case opNonTopoComplexPack4Bits:
		for i := 0; i <= fp.last; i++ {
			if br.readBool() {
				fp.data[i] += int32(br.readUbitlong(4)) - 7
			}
		}

	case opFieldPathEncodeFinish:
		return true
	}
	return false
}

// readFieldPaths decodes one entity delta's op stream to completion,
// invoking emit with a snapshot of the path after every op other than the
// finishing op, which emits nothing and ends the stream. This
// mirrors the EntityContainer hot path's preference to drive decoding
// in-line per emitted path rather than materializing a slice first.
func readFieldPaths(br *BitReader, emit func(*FieldPath)) error {
	fp := newFieldPath()
	for {
		op := decodeFieldPathOp(br)
		if br.IsOverflowed() {
			return ErrTruncatedFieldPath
		}
		if applyFieldPathOp(op, &fp, br) {
			return nil
		}
		if br.IsOverflowed() {
			return ErrTruncatedFieldPath
		}
		snapshot := fp
		emit(&snapshot)
	}
}
