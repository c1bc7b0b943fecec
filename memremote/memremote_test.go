package memremote

import (
	"errors"
	"testing"

	"github.com/justapithecus/contribuart/types"
)

func TestNewWithBranch(t *testing.T) {
	r, root := NewWithBranch("heads/main")

	ref, err := r.GetRef(t.Context(), "o", "r", "heads/main")
	if err != nil {
		t.Fatalf("GetRef: %v", err)
	}
	if ref.Name != "refs/heads/main" || ref.SHA != root {
		t.Errorf("ref = %+v, want refs/heads/main@%s", ref, root)
	}

	var rerr *Error
	_, err = r.GetRef(t.Context(), "o", "r", "heads/master")
	if !errors.As(err, &rerr) || rerr.HTTPStatus() != 404 {
		t.Errorf("missing ref: got %v, want 404", err)
	}
}

func TestContentAddressing(t *testing.T) {
	r := New()
	a, _ := r.CreateBlob(t.Context(), "o", "r", "hello\n")
	b, _ := r.CreateBlob(t.Context(), "o", "r", "hello\n")
	c, _ := r.CreateBlob(t.Context(), "o", "r", "other\n")

	if a != b {
		t.Errorf("identical content hashed differently: %s vs %s", a, b)
	}
	if a == c {
		t.Error("distinct content hashed the same")
	}
	// git hash-object for "hello\n"
	if a != "ce013625030ba8dba906f756967f9e9ca394464a" {
		t.Errorf("blob sha = %s, want git blob hash", a)
	}
}

func TestCreateTree_LayersOnBase(t *testing.T) {
	r, root := NewWithBranch("heads/main")
	baseTree, _ := r.GetCommitTree(t.Context(), "o", "r", root)

	b1, _ := r.CreateBlob(t.Context(), "o", "r", "one")
	t1, err := r.CreateTree(t.Context(), "o", "r", baseTree, []types.TreeEntry{types.BlobEntry("a.txt", b1)})
	if err != nil {
		t.Fatalf("CreateTree: %v", err)
	}
	b2, _ := r.CreateBlob(t.Context(), "o", "r", "two")
	t2, err := r.CreateTree(t.Context(), "o", "r", t1, []types.TreeEntry{types.BlobEntry("b.txt", b2)})
	if err != nil {
		t.Fatalf("CreateTree: %v", err)
	}

	files := r.TreeFiles(t2)
	if len(files) != 2 {
		t.Fatalf("tree has %d files, want 2", len(files))
	}
	if files["a.txt"].SHA != b1 || files["b.txt"].SHA != b2 {
		t.Errorf("unexpected tree contents: %+v", files)
	}
}

func TestUpdateRef_FastForwardOnly(t *testing.T) {
	r, root := NewWithBranch("heads/main")
	tree, _ := r.GetCommitTree(t.Context(), "o", "r", root)

	child, err := r.CreateCommit(t.Context(), "o", "r", types.CommitSpec{Message: "child", TreeSHA: tree, Parents: []string{root}})
	if err != nil {
		t.Fatalf("CreateCommit: %v", err)
	}
	orphan, _ := r.CreateCommit(t.Context(), "o", "r", types.CommitSpec{Message: "orphan", TreeSHA: tree})

	if err := r.UpdateRef(t.Context(), "o", "r", "heads/main", child, false); err != nil {
		t.Fatalf("fast-forward update: %v", err)
	}
	if err := r.UpdateRef(t.Context(), "o", "r", "heads/main", orphan, false); err == nil {
		t.Error("expected non-fast-forward update to fail")
	}
	if err := r.UpdateRef(t.Context(), "o", "r", "heads/main", orphan, true); err != nil {
		t.Errorf("forced update: %v", err)
	}
	if got := r.RefSHA("heads/main"); got != orphan {
		t.Errorf("ref = %s, want %s", got, orphan)
	}
}

func TestFailNext(t *testing.T) {
	r := New()
	boom := &Error{Code: 502, Message: "Bad Gateway"}
	r.FailNext(OpCreateBlob, boom)

	if _, err := r.CreateBlob(t.Context(), "o", "r", "x"); err != boom {
		t.Fatalf("first call: got %v, want injected error", err)
	}
	if _, err := r.CreateBlob(t.Context(), "o", "r", "x"); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if n := r.Count(OpCreateBlob); n != 2 {
		t.Errorf("Count = %d, want 2", n)
	}
}

func TestAncestry(t *testing.T) {
	r, root := NewWithBranch("heads/main")
	tree, _ := r.GetCommitTree(t.Context(), "o", "r", root)
	c1, _ := r.CreateCommit(t.Context(), "o", "r", types.CommitSpec{Message: "1", TreeSHA: tree, Parents: []string{root}})
	c2, _ := r.CreateCommit(t.Context(), "o", "r", types.CommitSpec{Message: "2", TreeSHA: tree, Parents: []string{c1}})

	got := r.Ancestry(c2)
	want := []string{c2, c1, root}
	if len(got) != len(want) {
		t.Fatalf("Ancestry = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Ancestry[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
