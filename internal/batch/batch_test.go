package batch

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/crivera/joistsync/internal/common"
)

func TestRead(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantCols []string
		wantRows [][]string
		comma    rune
		wantErr  bool
	}{
		{
			name:     "comma separated",
			input:    "a,b,c\n1,2,3\n4,5,6\n",
			comma:    ',',
			wantCols: []string{"a", "b", "c"},
			wantRows: [][]string{{"1", "2", "3"}, {"4", "5", "6"}},
		},
		{
			name:     "tab separated",
			input:    "a\tb\n1\t2\n",
			comma:    '\t',
			wantCols: []string{"a", "b"},
			wantRows: [][]string{{"1", "2"}},
		},
		{
			name:     "short rows padded",
			input:    "a,b,c\n1\n",
			comma:    ',',
			wantCols: []string{"a", "b", "c"},
			wantRows: [][]string{{"1", "", ""}},
		},
		{
			name:     "header only",
			input:    "a,b\n",
			comma:    ',',
			wantCols: []string{"a", "b"},
			wantRows: nil,
		},
		{
			name:    "long row rejected",
			input:   "a,b\n1,2,3\n",
			comma:   ',',
			wantErr: true,
		},
		{
			name:    "empty file rejected",
			input:   "",
			comma:   ',',
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Read(strings.NewReader(tt.input), tt.comma)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, common.ErrParseFailed) {
					t.Errorf("error = %v, want ErrParseFailed", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if len(b.Columns) != len(tt.wantCols) {
				t.Fatalf("columns = %v, want %v", b.Columns, tt.wantCols)
			}
			if b.Len() != len(tt.wantRows) {
				t.Fatalf("rows = %d, want %d", b.Len(), len(tt.wantRows))
			}
			for i, row := range tt.wantRows {
				for j, want := range row {
					if b.Rows[i][j] != want {
						t.Errorf("cell [%d][%d] = %q, want %q", i, j, b.Rows[i][j], want)
					}
				}
			}
		})
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "export.csv")
	if err := os.WriteFile(path, []byte("a,b\n1,2\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	b, head, err := ReadFile(path, ',')
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if head != nil {
		t.Errorf("head lines = %v, want nil on success", head)
	}
	if b.Len() != 1 {
		t.Errorf("rows = %d, want 1", b.Len())
	}

	// A ragged file returns its first lines for diagnosis.
	bad := filepath.Join(dir, "bad.csv")
	if err := os.WriteFile(bad, []byte("a,b\n1,2,3\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, head, err = ReadFile(bad, ',')
	if err == nil {
		t.Fatal("expected error for ragged file")
	}
	if len(head) != 2 {
		t.Errorf("head lines = %v, want both file lines", head)
	}

	// Missing file is a distinct sentinel.
	_, _, err = ReadFile(filepath.Join(dir, "nope.csv"), ',')
	if !errors.Is(err, common.ErrFileMissing) {
		t.Errorf("error = %v, want ErrFileMissing", err)
	}
}

func TestRenameAndEnsureColumns(t *testing.T) {
	b := New([]string{"Name", "Email Address"}, [][]string{{"Jane", "jane@example.com"}})

	b.RenameColumns(map[string]string{"Name": "full_name", "Unrelated": "x"})
	if !b.HasColumn("full_name") {
		t.Error("expected full_name after rename")
	}
	if !b.HasColumn("Email Address") {
		t.Error("unmapped column should keep its name")
	}

	b.EnsureColumns([]string{"full_name", "phone_mobile"})
	if !b.HasColumn("phone_mobile") {
		t.Fatal("expected phone_mobile to be added")
	}
	if got := b.Value(b.Rows[0], "phone_mobile"); got != "" {
		t.Errorf("added column cell = %q, want empty", got)
	}
	if got := b.Value(b.Rows[0], "full_name"); got != "Jane" {
		t.Errorf("full_name = %q, want Jane", got)
	}
}

func TestRowString(t *testing.T) {
	b := New([]string{"a", "b"}, [][]string{{"1", "2"}})
	if got := b.RowString(b.Rows[0]); got != "a=1, b=2" {
		t.Errorf("RowString = %q", got)
	}
}
