package writebuffer

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang/snappy"

	"github.com/meridiandb/meridian/pkg/types"
)

// recordHeaderSize is the fixed prefix of each log record:
// 4 bytes payload length + 4 bytes CRC32 of the compressed payload.
const recordHeaderSize = 8

// FileBuffer is a file-backed WriteBuffer with one append-only segment
// file per shard. Records are snappy-compressed JSON, length-prefixed
// and CRC-checked, and fsynced before Publish returns so an
// acknowledged write survives a crash.
type FileBuffer struct {
	dir      string
	shards   types.ShardSet
	segments map[types.ShardID]*os.File

	mu     sync.Mutex
	closed bool
}

// NewFileBuffer opens (creating if necessary) a file buffer with
// shardCount shards under dir. Shard IDs are 0..shardCount-1.
func NewFileBuffer(dir string, shardCount int) (*FileBuffer, error) {
	if shardCount <= 0 {
		return nil, fmt.Errorf("writebuffer: shard count must be > 0, got %d", shardCount)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("writebuffer: failed to create directory: %w", err)
	}

	fb := &FileBuffer{
		dir:      dir,
		segments: make(map[types.ShardID]*os.File, shardCount),
	}

	ids := make([]types.ShardID, 0, shardCount)
	for i := 0; i < shardCount; i++ {
		id := types.ShardID(i)
		path := fb.segmentPath(id)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fb.closeSegments()
			return nil, fmt.Errorf("writebuffer: failed to open shard segment %d: %w", i, err)
		}
		fb.segments[id] = f
		ids = append(ids, id)
	}
	fb.shards = types.NewShardSet(ids...)

	log.Printf("Write buffer opened: %d shards in %s", shardCount, dir)
	return fb, nil
}

func (fb *FileBuffer) segmentPath(id types.ShardID) string {
	return filepath.Join(fb.dir, fmt.Sprintf("shard_%04d.log", id))
}

// ShardIDs returns the buffer's shard inventory as a canonical set.
func (fb *FileBuffer) ShardIDs() types.ShardSet {
	return fb.shards
}

// Dir returns the directory holding the shard segments.
func (fb *FileBuffer) Dir() string {
	return fb.dir
}

// Publish appends one batch to the shard's segment and syncs it.
func (fb *FileBuffer) Publish(ctx context.Context, shard types.ShardID, write *types.PartitionedWrite) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fb.mu.Lock()
	closed := fb.closed
	segment, ok := fb.segments[shard]
	fb.mu.Unlock()

	if closed {
		return fmt.Errorf("writebuffer: %w", ErrClosed)
	}
	if !ok {
		return fmt.Errorf("writebuffer: shard %d: %w", shard, ErrUnknownShard)
	}

	payload, err := json.Marshal(write)
	if err != nil {
		return fmt.Errorf("writebuffer: failed to encode batch: %w", err)
	}
	compressed := snappy.Encode(nil, payload)

	record := make([]byte, recordHeaderSize+len(compressed))
	binary.BigEndian.PutUint32(record[0:4], uint32(len(compressed)))
	binary.BigEndian.PutUint32(record[4:8], crc32.ChecksumIEEE(compressed))
	copy(record[recordHeaderSize:], compressed)

	if _, err := segment.Write(record); err != nil {
		return fmt.Errorf("writebuffer: failed to append to shard %d: %w", shard, err)
	}
	if err := segment.Sync(); err != nil {
		return fmt.Errorf("writebuffer: failed to sync shard %d: %w", shard, err)
	}
	return nil
}

// ReadShard replays every record appended to one shard, in append
// order. Used by downstream consumers and tests; the router itself only
// publishes.
func (fb *FileBuffer) ReadShard(shard types.ShardID) ([]*types.PartitionedWrite, error) {
	if !fb.shards.Contains(shard) {
		return nil, fmt.Errorf("writebuffer: shard %d: %w", shard, ErrUnknownShard)
	}

	f, err := os.Open(fb.segmentPath(shard))
	if err != nil {
		return nil, fmt.Errorf("writebuffer: failed to open shard segment %d: %w", shard, err)
	}
	defer f.Close()

	var writes []*types.PartitionedWrite
	header := make([]byte, recordHeaderSize)
	for {
		if _, err := io.ReadFull(f, header); err != nil {
			if err == io.EOF {
				return writes, nil
			}
			return nil, fmt.Errorf("writebuffer: truncated record header in shard %d: %w", shard, err)
		}

		length := binary.BigEndian.Uint32(header[0:4])
		checksum := binary.BigEndian.Uint32(header[4:8])

		compressed := make([]byte, length)
		if _, err := io.ReadFull(f, compressed); err != nil {
			return nil, fmt.Errorf("writebuffer: truncated record in shard %d: %w", shard, err)
		}
		if crc32.ChecksumIEEE(compressed) != checksum {
			return nil, fmt.Errorf("writebuffer: checksum mismatch in shard %d", shard)
		}

		payload, err := snappy.Decode(nil, compressed)
		if err != nil {
			return nil, fmt.Errorf("writebuffer: failed to decompress record in shard %d: %w", shard, err)
		}

		write := &types.PartitionedWrite{}
		if err := json.Unmarshal(payload, write); err != nil {
			return nil, fmt.Errorf("writebuffer: failed to decode record in shard %d: %w", shard, err)
		}
		writes = append(writes, write)
	}
}

// Close closes all shard segments.
func (fb *FileBuffer) Close() error {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.closed {
		return nil
	}
	fb.closed = true
	return fb.closeSegments()
}

func (fb *FileBuffer) closeSegments() error {
	var firstErr error
	for id, f := range fb.segments {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("writebuffer: failed to close shard %d: %w", id, err)
		}
	}
	return firstErr
}
