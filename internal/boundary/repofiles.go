package boundary

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"jeeves/internal/atomicfile"
	jerrors "jeeves/internal/errors"
	"jeeves/internal/paths"
)

// repoFileIndex mirrors the on-disk repo-files/<owner>/<repo>/index.json:
// the set of relative paths currently projected from this repo's blob cache,
// keyed by the relative path they were uploaded under.
type repoFileIndex struct {
	Entries map[string]string `json:"entries"` // rel_path -> blob id
}

func blobIDFor(relPath string) string {
	sum := sha256.Sum256([]byte(relPath))
	return hex.EncodeToString(sum[:])
}

func loadRepoFileIndex(layout paths.Layout, owner, repo string) (*repoFileIndex, error) {
	idx := &repoFileIndex{Entries: map[string]string{}}
	found, err := atomicfile.ReadJSON(layout.RepoFilesIndex(owner, repo), idx)
	if err != nil {
		return nil, jerrors.Wrap(jerrors.KindIO, "boundary.loadRepoFileIndex", err)
	}
	if !found {
		idx.Entries = map[string]string{}
	}
	return idx, nil
}

func saveRepoFileIndex(layout paths.Layout, owner, repo string, idx *repoFileIndex) error {
	if err := atomicfile.WriteJSONAtomic(layout.RepoFilesIndex(owner, repo), idx); err != nil {
		return jerrors.Wrap(jerrors.KindIO, "boundary.saveRepoFileIndex", err)
	}
	return nil
}

func (idx *repoFileIndex) upsert(relPath, blobID string) {
	idx.Entries[relPath] = blobID
}

func (idx *repoFileIndex) remove(relPath string) {
	delete(idx.Entries, relPath)
}

func (idx *repoFileIndex) relPaths() []string {
	out := make([]string, 0, len(idx.Entries))
	for relPath := range idx.Entries {
		out = append(out, relPath)
	}
	sort.Strings(out)
	return out
}
