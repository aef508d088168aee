package domain_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/doeshing/shai-agent/internal/domain"
)

func TestIntentValidate(t *testing.T) {
	tests := []struct {
		name    string
		intent  domain.Intent
		wantErr bool
	}{
		{"question", domain.Intent{Kind: domain.IntentQuestion, Question: "what is this?"}, false},
		{"empty question", domain.Intent{Kind: domain.IntentQuestion}, true},
		{"add code", domain.Intent{Kind: domain.IntentEdit, Action: domain.ActionAddCode, Target: "main.go"}, false},
		{"shell without command", domain.Intent{Kind: domain.IntentEdit, Action: domain.ActionShellCommand}, true},
		{"compound without steps", domain.Intent{Kind: domain.IntentEdit, Action: domain.ActionCompoundAction}, true},
		{"compound shell step without command", domain.Intent{
			Kind:   domain.IntentEdit,
			Action: domain.ActionCompoundAction,
			Steps:  []domain.CompoundStep{{Action: domain.ActionShellCommand}},
		}, true},
		{"unknown action", domain.Intent{Kind: domain.IntentEdit, Action: "delete_repo"}, true},
		{"unknown kind", domain.Intent{Kind: "chat"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.intent.Validate()
			if tt.wantErr {
				if !errors.Is(err, domain.ErrSchemaInvalid) {
					t.Fatalf("expected ErrSchemaInvalid, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestProjectContextChangeDir(t *testing.T) {
	root := t.TempDir()
	home := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(home, "projects"), 0o755); err != nil {
		t.Fatal(err)
	}

	project := domain.ProjectContext{Root: root, Epoch: 3}

	next, err := project.ChangeDir("sub", home)
	if err != nil {
		t.Fatalf("ChangeDir(sub): %v", err)
	}
	if next.Root != filepath.Join(root, "sub") || next.Epoch != 4 {
		t.Fatalf("unexpected context %+v", next)
	}
	if project.Root != root || project.Epoch != 3 {
		t.Fatalf("receiver mutated: %+v", project)
	}

	viaTilde, err := project.ChangeDir("~/projects", home)
	if err != nil || viaTilde.Root != filepath.Join(home, "projects") {
		t.Fatalf("tilde candidate: %+v %v", viaTilde, err)
	}

	viaHome, err := project.ChangeDir("projects", home)
	if err != nil || viaHome.Root != filepath.Join(home, "projects") {
		t.Fatalf("home-relative candidate: %+v %v", viaHome, err)
	}

	same, err := project.ChangeDir("missing", home)
	if !errors.Is(err, domain.ErrDirectoryNotFound) {
		t.Fatalf("expected ErrDirectoryNotFound, got %v", err)
	}
	if same != project {
		t.Fatalf("failed change must return the unchanged context, got %+v", same)
	}
}
