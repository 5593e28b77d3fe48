package checkpointer

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"gonum.org/v1/gonum/mat"
)

// Extensions of snapshot files
const (
	Extension           = ".qtab"
	CompressedExtension = ".qtab.zst"
)

// Snapshot is a saved action-value table of one role
type Snapshot struct {
	RunID   string    `cbor:"run_id"`
	Role    string    `cbor:"role"`
	Episode int       `cbor:"episode"`
	Epsilon float64   `cbor:"epsilon"`
	Rows    int       `cbor:"rows"`
	Cols    int       `cbor:"cols"`
	Q       []float64 `cbor:"q"`
	SavedAt time.Time `cbor:"saved_at"`

	// FullStateSpace marks tables whose rows were assigned by a state
	// indexer. States then holds the indexer key of each row.
	FullStateSpace bool     `cbor:"full_state_space,omitempty"`
	States         []string `cbor:"states,omitempty"`
}

// NewSnapshot copies q into a new Snapshot
func NewSnapshot(runID, role string, episode int, epsilon float64,
	q mat.Matrix) Snapshot {
	r, c := q.Dims()
	values := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			values = append(values, q.At(i, j))
		}
	}

	return Snapshot{
		RunID:   runID,
		Role:    role,
		Episode: episode,
		Epsilon: epsilon,
		Rows:    r,
		Cols:    c,
		Q:       values,
		SavedAt: time.Now().UTC(),
	}
}

// Dense returns the action values of the Snapshot as a new matrix
func (s Snapshot) Dense() (*mat.Dense, error) {
	if s.Rows < 1 || s.Cols < 1 || len(s.Q) != s.Rows*s.Cols {
		return nil, fmt.Errorf("dense: snapshot of shape (%d, %d) holds %d "+
			"values", s.Rows, s.Cols, len(s.Q))
	}
	values := make([]float64, len(s.Q))
	copy(values, s.Q)
	return mat.NewDense(s.Rows, s.Cols, values), nil
}

// encMode encodes snapshots with Core Deterministic Encoding, so the
// same snapshot always produces identical bytes
var encMode cbor.EncMode

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

// zstdMagic starts every zstd frame
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

func init() {
	var err error
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	encMode, err = opts.EncMode()
	if err != nil {
		panic("checkpointer: CBOR encoder initialization failed: " +
			err.Error())
	}

	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	if err != nil {
		panic("checkpointer: zstd encoder initialization failed: " +
			err.Error())
	}

	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("checkpointer: zstd decoder initialization failed: " +
			err.Error())
	}
}

// Marshal encodes a Snapshot, compressing it with zstd if compress is
// true
func Marshal(s Snapshot, compress bool) ([]byte, error) {
	data, err := encMode.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	if compress {
		data = zstdEncoder.EncodeAll(data, nil)
	}
	return data, nil
}

// Unmarshal decodes a Snapshot encoded by Marshal. Compression is
// detected from the data.
func Unmarshal(data []byte) (Snapshot, error) {
	if bytes.HasPrefix(data, zstdMagic) {
		var err error
		data, err = zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return Snapshot{}, fmt.Errorf("unmarshal: %w", err)
		}
	}

	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal: %w", err)
	}
	return s, nil
}

// Save writes a Snapshot to path, creating its directory if needed
func Save(path string, s Snapshot, compress bool) error {
	data, err := Marshal(s, compress)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

// Load reads a Snapshot written by Save
func Load(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load: %w", err)
	}

	s, err := Unmarshal(data)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load %v: %w", path, err)
	}
	return s, nil
}
