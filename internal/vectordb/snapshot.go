package vectordb

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

const snapshotVersion = 1

// snapshotFile is the on-disk snapshot envelope. Chunk metadata is
// plain JSON; all embeddings are packed into one base64 blob of
// little-endian float32s. Checksum is the sha256 of the envelope
// serialized with an empty checksum field, so any torn or edited
// snapshot fails validation as a whole.
type snapshotFile struct {
	Version   int     `json:"version"`
	Dimension int     `json:"dimension"`
	Count     int     `json:"count"`
	Chunks    []Chunk `json:"chunks"`
	Vectors   string  `json:"vectors"`
	Checksum  string  `json:"checksum"`
}

func marshalSnapshot(dimensions int, entries []Chunk) ([]byte, error) {
	vec := make([]byte, 0, len(entries)*dimensions*4)
	chunks := make([]Chunk, len(entries))
	for i, c := range entries {
		vec = append(vec, float32SliceToBytes(c.Embedding)...)
		chunks[i] = c
		chunks[i].Embedding = nil
	}

	snap := snapshotFile{
		Version:   snapshotVersion,
		Dimension: dimensions,
		Count:     len(entries),
		Chunks:    chunks,
		Vectors:   base64.StdEncoding.EncodeToString(vec),
	}
	sum, err := snapshotChecksum(&snap)
	if err != nil {
		return nil, err
	}
	snap.Checksum = sum

	return json.Marshal(&snap)
}

// readSnapshot loads and validates the snapshot at path. A missing
// file yields (nil, nil). Any validation failure yields an error
// wrapping ErrCorrupt.
func readSnapshot(path string, dimensions int) ([]Chunk, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap snapshotFile
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, snap.Version)
	}

	sum := snap.Checksum
	snap.Checksum = ""
	want, err := snapshotChecksum(&snap)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if sum != want {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}

	if snap.Dimension != dimensions {
		return nil, fmt.Errorf("%w: snapshot dimension %d, index dimension %d",
			ErrCorrupt, snap.Dimension, dimensions)
	}
	if len(snap.Chunks) != snap.Count {
		return nil, fmt.Errorf("%w: %d chunk records, count says %d",
			ErrCorrupt, len(snap.Chunks), snap.Count)
	}

	vec, err := base64.StdEncoding.DecodeString(snap.Vectors)
	if err != nil {
		return nil, fmt.Errorf("%w: bad vector encoding: %v", ErrCorrupt, err)
	}
	if len(vec) != snap.Count*snap.Dimension*4 {
		return nil, fmt.Errorf("%w: vector blob is %d bytes, want %d",
			ErrCorrupt, len(vec), snap.Count*snap.Dimension*4)
	}

	stride := snap.Dimension * 4
	entries := make([]Chunk, snap.Count)
	for i := range entries {
		entries[i] = snap.Chunks[i]
		entries[i].Embedding = bytesToFloat32Slice(vec[i*stride : (i+1)*stride])
	}
	return entries, nil
}

func snapshotChecksum(snap *snapshotFile) (string, error) {
	payload, err := json.Marshal(snap)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// writeFileAtomic writes data to a temp file in path's directory,
// syncs it, then renames it over path so readers only ever observe
// the old or the new snapshot.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// float32SliceToBytes packs a float32 slice into little-endian bytes.
func float32SliceToBytes(v []float32) []byte {
	out := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

// bytesToFloat32Slice unpacks little-endian bytes into float32s.
func bytesToFloat32Slice(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
