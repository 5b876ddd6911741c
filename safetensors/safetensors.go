// Package safetensors writes the exact-dedup suffix-array container: a
// safetensors-style binary with one named tensor (the ZSTD-compressed
// suffix array, stored as a raw u8 blob) and a string metadata map,
// modeled on the header shape in safetensors.hh.
package safetensors

import (
	"encoding/binary"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/klauspost/compress/zstd"

	"github.com/faithful-dedup/corpus-dedup/jsonbuilder"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TensorName is the single tensor this container ever carries.
const TensorName = "suffix_array"

type tensorInfo struct {
	Dtype       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// Metadata holds the string -> string metadata map described in §6.
type Metadata struct {
	InputFilename string
	Tokenized     bool
	UseCodepoint  bool
	VocabFilename string
	RunID         string
}

func (m Metadata) toMap() map[string]string {
	out := map[string]string{
		"input_filename": m.InputFilename,
		"compression":    "zstd",
		"tokenized":      boolString(m.Tokenized),
		"run_id":         m.RunID,
	}
	if m.Tokenized {
		out["use_codepoint"] = boolString(m.UseCodepoint)
		out["vocab_filename"] = m.VocabFilename
	}
	return out
}

// metaKeyOrder fixes the metadata field order in the written header so
// output is byte-stable across runs with identical inputs.
func metaKeyOrder(m Metadata) []string {
	order := []string{"input_filename", "compression", "tokenized", "run_id"}
	if m.Tokenized {
		order = append(order, "use_codepoint", "vocab_filename")
	}
	return order
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// WriteSuffixArray writes sa, zstd-compressed, into a safetensors-style
// container at w, with the metadata map described in §6.
func WriteSuffixArray(w io.Writer, sa []uint32, meta Metadata, level zstd.EncoderLevel) error {
	raw := make([]byte, len(sa)*4)
	for i, v := range sa {
		binary.LittleEndian.PutUint32(raw[i*4:], v)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
	if err != nil {
		return fmt.Errorf("safetensors: new zstd encoder: %w", err)
	}
	payload := enc.EncodeAll(raw, nil)
	if err := enc.Close(); err != nil {
		return fmt.Errorf("safetensors: close zstd encoder: %w", err)
	}

	metaObj := jsonbuilder.NewObject()
	metaMap := meta.toMap()
	for _, k := range metaKeyOrder(meta) {
		metaObj.String(k, metaMap[k])
	}

	header := jsonbuilder.NewObject().
		Object(TensorName, jsonbuilder.NewObject().
			String("dtype", "U8").
			Array("shape", jsonbuilder.NewArray().AddInt(int64(len(payload)))).
			Array("data_offsets", jsonbuilder.NewArray().AddInt(0).AddInt(int64(len(payload))))).
		Object("__metadata__", metaObj)

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("safetensors: marshal header: %w", err)
	}

	var sizeBuf [8]byte
	binary.LittleEndian.PutUint64(sizeBuf[:], uint64(len(headerJSON)))
	if _, err := w.Write(sizeBuf[:]); err != nil {
		return fmt.Errorf("safetensors: write header size: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("safetensors: write header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("safetensors: write payload: %w", err)
	}
	return nil
}

// Container is a parsed safetensors-style suffix-array file, produced by
// ReadSuffixArray.
type Container struct {
	SuffixArray []uint32
	Metadata    map[string]string
}

// ReadSuffixArray parses a container written by WriteSuffixArray back
// into its suffix array and metadata map.
func ReadSuffixArray(r io.Reader) (Container, error) {
	var sizeBuf [8]byte
	if _, err := io.ReadFull(r, sizeBuf[:]); err != nil {
		return Container{}, fmt.Errorf("safetensors: read header size: %w", err)
	}
	headerLen := binary.LittleEndian.Uint64(sizeBuf[:])

	headerJSON := make([]byte, headerLen)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return Container{}, fmt.Errorf("safetensors: read header: %w", err)
	}

	var header map[string]jsoniter.RawMessage
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return Container{}, fmt.Errorf("safetensors: unmarshal header: %w", err)
	}

	var info tensorInfo
	rawInfo, ok := header[TensorName]
	if !ok {
		return Container{}, fmt.Errorf("safetensors: missing tensor %q", TensorName)
	}
	if err := json.Unmarshal(rawInfo, &info); err != nil {
		return Container{}, fmt.Errorf("safetensors: unmarshal tensor info: %w", err)
	}

	var meta map[string]string
	if rawMeta, ok := header["__metadata__"]; ok {
		if err := json.Unmarshal(rawMeta, &meta); err != nil {
			return Container{}, fmt.Errorf("safetensors: unmarshal metadata: %w", err)
		}
	}

	payloadLen := info.DataOffsets[1] - info.DataOffsets[0]
	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Container{}, fmt.Errorf("safetensors: read payload: %w", err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return Container{}, fmt.Errorf("safetensors: new zstd decoder: %w", err)
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(payload, nil)
	if err != nil {
		return Container{}, fmt.Errorf("safetensors: decode suffix array payload: %w", err)
	}
	if len(raw)%4 != 0 {
		return Container{}, fmt.Errorf("safetensors: decoded payload length %d is not a multiple of 4", len(raw))
	}
	sa := make([]uint32, len(raw)/4)
	for i := range sa {
		sa[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}

	return Container{SuffixArray: sa, Metadata: meta}, nil
}
