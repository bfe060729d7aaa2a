package indexer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/klauspost/compress/zstd"

	"github.com/ykosuru/vsix-sub002/internal/domain"
	"github.com/ykosuru/vsix-sub002/internal/inverted"
	"github.com/ykosuru/vsix-sub002/internal/parser"
	"github.com/ykosuru/vsix-sub002/internal/snapshot"
	"github.com/ykosuru/vsix-sub002/pkg/types"
)

const (
	// SnapshotFormatVersion is written into every exported blob
	SnapshotFormatVersion = "2.0.0"

	snapshotMagic = "codescout-snapshot"
	// maxHeaderLen bounds the plain-text header line
	maxHeaderLen = 64
)

// supportedVersions is the range of blob versions Import accepts
var supportedVersions = mustConstraint("~2.0")

func mustConstraint(c string) *semver.Constraints {
	cs, err := semver.NewConstraint(c)
	if err != nil {
		panic(fmt.Sprintf("invalid snapshot version constraint %q: %v", c, err))
	}
	return cs
}

// exportPayload is the body of a blob. Trigram spaces are not stored; they
// are a pure function of files and symbols and are rebuilt on import.
type exportPayload struct {
	Features  snapshot.Features   `json:"features"`
	Stats     types.BuildStats    `json:"stats"`
	Files     []*types.FileRecord `json:"files"`
	Symbols   []types.Symbol      `json:"symbols"`
	Calls     map[string][]string `json:"calls"`
	Keywords  inverted.Snapshot   `json:"keywords"`
	Knowledge *domain.Knowledge   `json:"knowledge"`
}

// Export writes the published snapshot to w as a versioned blob: a one-line
// header naming the format version, then zstd-compressed JSON
func (ix *Index) Export(w io.Writer) error {
	snap := ix.Snapshot()
	p := exportPayload{
		Features:  snap.Features(),
		Stats:     snap.Stats(),
		Files:     snap.Files(),
		Symbols:   snap.Symbols(),
		Calls:     snap.Graph().Adjacency(),
		Keywords:  snap.Keywords().Snapshot(),
		Knowledge: snap.Knowledge(),
	}

	if _, err := fmt.Fprintf(w, "%s %s\n", snapshotMagic, SnapshotFormatVersion); err != nil {
		return fmt.Errorf("failed to write snapshot header: %w", err)
	}
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("failed to create compressor: %w", err)
	}
	if err := json.NewEncoder(enc).Encode(&p); err != nil {
		_ = enc.Close()
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to flush snapshot: %w", err)
	}
	return nil
}

// ExportBytes is Export into a byte slice
func (ix *Index) ExportBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := ix.Export(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Import replaces the published snapshot with one read from r. A blob whose
// version is outside the supported range fails with
// types.ErrUnsupportedSnapshotVersion and an undecodable one with
// types.ErrCorruptSnapshot; either way the published snapshot is untouched.
func (ix *Index) Import(ctx context.Context, r io.Reader) (*types.BuildStats, error) {
	if !ix.lock.TryAcquire() {
		return nil, types.ErrBuildInProgress
	}
	defer ix.lock.Release()

	br := bufio.NewReader(r)
	version, err := readHeader(br)
	if err != nil {
		return nil, err
	}
	if !supportedVersions.Check(version) {
		return nil, fmt.Errorf("%w: %s (supported %s)", types.ErrUnsupportedSnapshotVersion, version, supportedVersions)
	}

	dec, err := zstd.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrCorruptSnapshot, err)
	}
	defer dec.Close()

	var p exportPayload
	if err := json.NewDecoder(dec).Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrCorruptSnapshot, err)
	}
	for _, f := range p.Files {
		if f == nil {
			return nil, fmt.Errorf("%w: nil file record", types.ErrCorruptSnapshot)
		}
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrCorruptSnapshot, err)
		}
	}

	snap, err := ix.restore(ctx, &p)
	if err != nil {
		return nil, err
	}
	ix.publish(snap)

	stats := snap.Stats()
	ix.logger.Info("snapshot imported",
		"build_id", stats.BuildID,
		"version", version.String(),
		"files", snap.FileCount(),
		"symbols", snap.SymbolCount())
	return &stats, nil
}

// readHeader parses "codescout-snapshot <semver>\n"
func readHeader(br *bufio.Reader) (*semver.Version, error) {
	var line []byte
	for len(line) <= maxHeaderLen {
		b, err := br.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: missing header: %v", types.ErrCorruptSnapshot, err)
		}
		if b == '\n' {
			break
		}
		line = append(line, b)
	}
	if len(line) > maxHeaderLen {
		return nil, fmt.Errorf("%w: header too long", types.ErrCorruptSnapshot)
	}

	magic, tag, ok := strings.Cut(string(line), " ")
	if !ok || magic != snapshotMagic {
		return nil, fmt.Errorf("%w: not a snapshot", types.ErrCorruptSnapshot)
	}
	version, err := semver.StrictNewVersion(strings.TrimSpace(tag))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", types.ErrUnsupportedSnapshotVersion, tag)
	}
	return version, nil
}

// restore rebuilds a snapshot from a decoded payload
func (ix *Index) restore(ctx context.Context, p *exportPayload) (*snapshot.Snapshot, error) {
	opts := &BuildOptions{EnableTrigrams: p.Features.Trigrams}
	parts, err := ix.indexParts(ctx, p.Files, p.Symbols, nil, opts, ix.workers)
	if err != nil {
		return nil, err
	}
	parts.Features = p.Features
	parts.Graph = parser.FromAdjacency(p.Calls)
	parts.Keywords = inverted.FromSnapshot(p.Keywords)
	parts.Knowledge = p.Knowledge
	parts.Stats = p.Stats
	return snapshot.New(parts), nil
}
