// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package haste

import "testing"

func TestFieldPathNewIsRootOnly(t *testing.T) {
	fp := newFieldPath()
	if fp.Last() != 0 || fp.Get(0) != -1 {
		t.Fatalf("newFieldPath = %+v, want last=0 get(0)=-1", fp)
	}
}

func TestFieldPathPushPop(t *testing.T) {
	fp := newFieldPath()
	fp.push(3)
	fp.push(7)
	if fp.Last() != 2 || fp.Get(1) != 3 || fp.Get(2) != 7 {
		t.Fatalf("after pushes: %+v", fp)
	}
	fp.pop(1)
	if fp.Last() != 1 || fp.Get(1) != 3 {
		t.Fatalf("after pop: %+v", fp)
	}
}

func TestFieldPathHuffmanTreeCoversAllOps(t *testing.T) {
	seen := make(map[fieldPathOp]bool)
	var walk func(n *huffmanNode)
	walk = func(n *huffmanNode) {
		if n.isLeaf {
			seen[n.op] = true
			return
		}
		walk(n.left)
		walk(n.right)
	}
	walk(fieldPathHuffmanRoot)
	for op := fieldPathOp(0); op < numFieldPathOps; op++ {
		if !seen[op] {
			t.Fatalf("op %d has no Huffman code", op)
		}
	}
}

func TestReadFieldPathsSingleFinish(t *testing.T) {
	// opFieldPathEncodeFinish has the second most frequent weight (only
	// opPlusOne's code is shorter); whatever its bit pattern, encoding it alone must terminate
	// immediately with zero emitted paths.
	code, length := huffmanCode(fieldPathHuffmanRoot, opFieldPathEncodeFinish, nil, 0)
	if length == 0 {
		t.Fatalf("opFieldPathEncodeFinish not found in tree")
	}
	buf := packBitsLSBFromCode(code, length)
	br := NewBitReader(buf)

	var got []FieldPath
	err := readFieldPaths(br, func(fp *FieldPath) { got = append(got, *fp) })
	if err != nil {
		t.Fatalf("readFieldPaths: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d paths, want 0", len(got))
	}
}

func TestReadFieldPathsTruncatedStream(t *testing.T) {
	// A handful of zero bits alone will, with overwhelming likelihood, walk
	// into a non-finish leaf and then run out of bits trying to read that
	// op's operands, never reaching opFieldPathEncodeFinish.
	br := NewBitReader([]byte{0x00})
	err := readFieldPaths(br, func(*FieldPath) {})
	if err != ErrTruncatedFieldPath {
		t.Fatalf("err = %v, want ErrTruncatedFieldPath", err)
	}
}

// huffmanCode finds the root-to-leaf bit path for op, returning the bits
// (as a []bool in MSB-first emission order matching decodeFieldPathOp's
// left=0/right=1 walk) and its length; ok via length>0.
func huffmanCode(n *huffmanNode, op fieldPathOp, path []bool, depth int) ([]bool, int) {
	if n.isLeaf {
		if n.op == op {
			out := make([]bool, len(path))
			copy(out, path)
			return out, depth
		}
		return nil, 0
	}
	if c, l := huffmanCode(n.left, op, append(path, false), depth+1); l > 0 {
		return c, l
	}
	if c, l := huffmanCode(n.right, op, append(path, true), depth+1); l > 0 {
		return c, l
	}
	return nil, 0
}

// packBitsLSBFromCode packs bits (MSB-first logical order, matching the
// decoder's left=0/right=1 walk) into bytes using the stream's LSB-first bit
// packing, the same layout packBitsLSB in bitreader_test.go produces.
func packBitsLSBFromCode(bits []bool, n int) []byte {
	buf := make([]byte, (n+7)/8+1)
	for i := 0; i < n; i++ {
		if bits[i] {
			buf[i/8] |= 1 << uint(i%8)
		}
	}
	return buf
}
