package semfolder

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrInvalidFormat is returned when a metadata blob's magic or version
// doesn't match what this package writes. The original implementation
// deserialized these blobs with pickle, an unsafe general-object format;
// this one uses a versioned, length-prefixed binary layout instead (spec
// §9), so a corrupt or foreign blob is rejected outright rather than
// executed.
var ErrInvalidFormat = errors.New("semfolder: invalid or corrupt metadata blob")

const (
	graphMagic   uint32 = 0x53464731 // "SFG1"
	assocMagic   uint32 = 0x53464131 // "SFA1"
	formatVers   uint8  = 1
	maxNameBytes        = 1 << 20 // guards against a corrupt length prefix reading gigabytes
)

func writeString(w *bufio.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.WriteString(s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	if n > maxNameBytes {
		return "", ErrInvalidFormat
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// encodeGraph writes the node list then the arc list (as index pairs into
// that list): magic, version, nodeCount, nodes..., arcCount, arcs....
func encodeGraph(w io.Writer, nodes []string, arcs [][2]string) error {
	bw := bufio.NewWriter(w)

	if err := binary.Write(bw, binary.LittleEndian, graphMagic); err != nil {
		return err
	}
	if err := bw.WriteByte(formatVers); err != nil {
		return err
	}

	index := make(map[string]uint32, len(nodes))
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(nodes))); err != nil {
		return err
	}
	for i, n := range nodes {
		if err := writeString(bw, n); err != nil {
			return err
		}
		index[n] = uint32(i)
	}

	if err := binary.Write(bw, binary.LittleEndian, uint32(len(arcs))); err != nil {
		return err
	}
	for _, a := range arcs {
		from, ok1 := index[a[0]]
		to, ok2 := index[a[1]]
		if !ok1 || !ok2 {
			return fmt.Errorf("semfolder: arc references unknown node")
		}
		if err := binary.Write(bw, binary.LittleEndian, from); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, to); err != nil {
			return err
		}
	}

	return bw.Flush()
}

func decodeGraph(r io.Reader) (nodes []string, arcs [][2]string, err error) {
	br := bufio.NewReader(r)

	var magic uint32
	if err := binary.Read(br, binary.LittleEndian, &magic); err != nil {
		return nil, nil, err
	}
	if magic != graphMagic {
		return nil, nil, ErrInvalidFormat
	}
	vers, err := br.ReadByte()
	if err != nil {
		return nil, nil, err
	}
	if vers != formatVers {
		return nil, nil, ErrInvalidFormat
	}

	var nodeCount uint32
	if err := binary.Read(br, binary.LittleEndian, &nodeCount); err != nil {
		return nil, nil, err
	}
	if nodeCount > maxNameBytes {
		return nil, nil, ErrInvalidFormat
	}
	nodes = make([]string, nodeCount)
	for i := range nodes {
		name, err := readString(br)
		if err != nil {
			return nil, nil, err
		}
		nodes[i] = name
	}

	var arcCount uint32
	if err := binary.Read(br, binary.LittleEndian, &arcCount); err != nil {
		return nil, nil, err
	}
	if arcCount > maxNameBytes {
		return nil, nil, ErrInvalidFormat
	}
	arcs = make([][2]string, arcCount)
	for i := range arcs {
		var from, to uint32
		if err := binary.Read(br, binary.LittleEndian, &from); err != nil {
			return nil, nil, err
		}
		if err := binary.Read(br, binary.LittleEndian, &to); err != nil {
			return nil, nil, err
		}
		if int(from) >= len(nodes) || int(to) >= len(nodes) {
			return nil, nil, ErrInvalidFormat
		}
		arcs[i] = [2]string{nodes[from], nodes[to]}
	}

	return nodes, arcs, nil
}

// encodeAssoc writes the tag name table then the per-file tag-index
// lists: magic, version, tagCount, tags..., fileCount, (name, tagIdxCount,
// tagIdx...)....
func encodeAssoc(w io.Writer, assoc map[string][]string) error {
	bw := bufio.NewWriter(w)

	if err := binary.Write(bw, binary.LittleEndian, assocMagic); err != nil {
		return err
	}
	if err := bw.WriteByte(formatVers); err != nil {
		return err
	}

	tagIndex := make(map[string]uint32)
	var tagTable []string
	for _, tags := range assoc {
		for _, t := range tags {
			if _, ok := tagIndex[t]; !ok {
				tagIndex[t] = uint32(len(tagTable))
				tagTable = append(tagTable, t)
			}
		}
	}

	if err := binary.Write(bw, binary.LittleEndian, uint32(len(tagTable))); err != nil {
		return err
	}
	for _, t := range tagTable {
		if err := writeString(bw, t); err != nil {
			return err
		}
	}

	if err := binary.Write(bw, binary.LittleEndian, uint32(len(assoc))); err != nil {
		return err
	}
	for filename, tags := range assoc {
		if err := writeString(bw, filename); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(tags))); err != nil {
			return err
		}
		for _, t := range tags {
			if err := binary.Write(bw, binary.LittleEndian, tagIndex[t]); err != nil {
				return err
			}
		}
	}

	return bw.Flush()
}

func decodeAssoc(r io.Reader) (map[string][]string, error) {
	br := bufio.NewReader(r)

	var magic uint32
	if err := binary.Read(br, binary.LittleEndian, &magic); err != nil {
		return nil, err
	}
	if magic != assocMagic {
		return nil, ErrInvalidFormat
	}
	vers, err := br.ReadByte()
	if err != nil {
		return nil, err
	}
	if vers != formatVers {
		return nil, ErrInvalidFormat
	}

	var tagCount uint32
	if err := binary.Read(br, binary.LittleEndian, &tagCount); err != nil {
		return nil, err
	}
	if tagCount > maxNameBytes {
		return nil, ErrInvalidFormat
	}
	tagTable := make([]string, tagCount)
	for i := range tagTable {
		t, err := readString(br)
		if err != nil {
			return nil, err
		}
		tagTable[i] = t
	}

	var fileCount uint32
	if err := binary.Read(br, binary.LittleEndian, &fileCount); err != nil {
		return nil, err
	}
	if fileCount > maxNameBytes {
		return nil, ErrInvalidFormat
	}
	assoc := make(map[string][]string, fileCount)
	for i := uint32(0); i < fileCount; i++ {
		name, err := readString(br)
		if err != nil {
			return nil, err
		}
		var tagIdxCount uint32
		if err := binary.Read(br, binary.LittleEndian, &tagIdxCount); err != nil {
			return nil, err
		}
		if tagIdxCount > maxNameBytes {
			return nil, ErrInvalidFormat
		}
		tags := make([]string, tagIdxCount)
		for j := range tags {
			var idx uint32
			if err := binary.Read(br, binary.LittleEndian, &idx); err != nil {
				return nil, err
			}
			if int(idx) >= len(tagTable) {
				return nil, ErrInvalidFormat
			}
			tags[j] = tagTable[idx]
		}
		assoc[name] = tags
	}

	return assoc, nil
}
