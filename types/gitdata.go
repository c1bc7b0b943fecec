package types

// FileMode is the git mode for a regular, non-executable file.
const FileMode = "100644"

// Ref is a branch ref as reported by the remote.
type Ref struct {
	// Name is the full ref name (e.g. "refs/heads/main").
	Name string
	// SHA is the commit the ref points at.
	SHA string
}

// TreeEntry is one blob placed into a tree.
type TreeEntry struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
	Type string `json:"type"`
	SHA  string `json:"sha"`
}

// BlobEntry returns a regular-file tree entry for a blob.
func BlobEntry(path, sha string) TreeEntry {
	return TreeEntry{Path: path, Mode: FileMode, Type: "blob", SHA: sha}
}

// CommitSpec describes a commit to create.
type CommitSpec struct {
	Message   string
	TreeSHA   string
	Parents   []string
	Author    Signature
	Committer Signature
}
