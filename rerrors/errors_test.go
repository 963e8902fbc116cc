package rerrors

import (
	"errors"
	"testing"
)

const testCode CodeError = MinPkgReactor + 1

func TestCodeErrorRoundTrip(t *testing.T) {
	RegisterIdFctMessage(testCode, func(c CodeError) string {
		if c == testCode {
			return "listener bind failed"
		}
		return ""
	})

	e := testCode.Error()
	if e.GetCode() != testCode {
		t.Fatalf("GetCode() = %v, want %v", e.GetCode(), testCode)
	}
	if !e.IsCode(testCode) {
		t.Fatalf("expected IsCode to match")
	}
	if e.StringError() != "listener bind failed" {
		t.Fatalf("StringError() = %q", e.StringError())
	}
}

func TestHasParentAndMap(t *testing.T) {
	root := errors.New("socket closed")
	e := testCode.Error(root)

	if !e.HasParent() {
		t.Fatalf("expected error to report a parent")
	}

	visited := 0
	e.Map(func(err error) bool {
		visited++
		return true
	})
	if visited != 2 {
		t.Fatalf("expected Map to visit self + 1 parent, visited %d", visited)
	}
}

func TestIsMatchesByCode(t *testing.T) {
	a := testCode.Error()
	b := testCode.Error()

	if !errors.Is(a, b) {
		t.Fatalf("expected two errors sharing a code to satisfy errors.Is")
	}
}

func TestHasCodeWalksParents(t *testing.T) {
	const childCode CodeError = MinPkgReactor + 2

	parent := testCode.Error()
	child := childCode.Error(parent)

	if !child.HasCode(testCode) {
		t.Fatalf("expected HasCode to find code on parent")
	}
}
