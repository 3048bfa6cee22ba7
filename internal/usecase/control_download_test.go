package usecase

import (
	"context"
	"errors"
	"testing"

	"torrenthub/internal/domain"
)

func TestPauseDownload(t *testing.T) {
	store := &fakeStore{}
	client := newFakeClient()
	d := storedDownload(t, store, testHash)

	uc := PauseDownload{Store: store, Client: client}
	got, err := uc.Execute(context.Background(), d.ID.String())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got.Status != domain.StatePaused {
		t.Fatalf("status = %s", got.Status)
	}
	if len(client.paused) != 1 || client.paused[0] != testHash {
		t.Fatalf("client pause calls = %v", client.paused)
	}
	if store.get(t, d.ID).Status != domain.StatePaused {
		t.Fatal("pause must be persisted")
	}
}

func TestPauseDownloadGuards(t *testing.T) {
	store := &fakeStore{}
	client := newFakeClient()
	d := storedDownload(t, store, testHash)
	d.Status = domain.StateCompleted
	_ = store.Save(context.Background(), d)
	store.saves = 0

	uc := PauseDownload{Store: store, Client: client}
	if _, err := uc.Execute(context.Background(), d.ID.String()); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if len(client.paused) != 0 {
		t.Fatal("an illegal transition must not reach the client")
	}
	if store.saves != 0 {
		t.Fatal("an illegal transition must not be persisted")
	}
}

func TestPauseDownloadClientFailureIsNotPersisted(t *testing.T) {
	store := &fakeStore{}
	client := newFakeClient()
	client.pauseErr = errors.New("api down")
	d := storedDownload(t, store, testHash)

	uc := PauseDownload{Store: store, Client: client}
	if _, err := uc.Execute(context.Background(), d.ID.String()); !errors.Is(err, domain.ErrClient) {
		t.Fatalf("expected client error, got %v", err)
	}
	if store.get(t, d.ID).Status != domain.StateDownloading {
		t.Fatal("client failure must leave the record unchanged")
	}
}

func TestResumeDownload(t *testing.T) {
	store := &fakeStore{}
	client := newFakeClient()
	d := storedDownload(t, store, testHash)
	d.Status = domain.StatePaused
	_ = store.Save(context.Background(), d)

	uc := ResumeDownload{Store: store, Client: client}
	got, err := uc.Execute(context.Background(), d.ID.String())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got.Status != domain.StateDownloading {
		t.Fatalf("status = %s", got.Status)
	}
	if len(client.resumed) != 1 {
		t.Fatalf("client resume calls = %v", client.resumed)
	}

	// Resuming a download that is not paused is rejected.
	if _, err := uc.Execute(context.Background(), d.ID.String()); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestRemoveDownload(t *testing.T) {
	store := &fakeStore{}
	client := newFakeClient()
	fs := &fakeFS{}
	d := storedDownload(t, store, testHash)

	uc := RemoveDownload{Store: store, Client: client, FS: fs}
	out, err := uc.Execute(context.Background(), RemoveDownloadInput{ID: d.ID.String(), DeleteFiles: true})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !out.Removed {
		t.Fatal("expected removal")
	}
	if len(client.removed) != 1 || !client.removed[0].deleteFiles {
		t.Fatalf("client remove calls = %+v", client.removed)
	}
	// The client handled file deletion, so the file system stays untouched.
	if len(fs.deleted) != 0 {
		t.Fatalf("unexpected manual deletes: %v", fs.deleted)
	}
	if _, err := store.FindByID(context.Background(), d.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatal("record must be gone from the store")
	}
}

func TestRemoveDownloadFallsBackToManualDelete(t *testing.T) {
	store := &fakeStore{}
	client := newFakeClient()
	client.knows = false
	fs := &fakeFS{}
	d := storedDownload(t, store, testHash)

	uc := RemoveDownload{Store: store, Client: client, FS: fs}
	if _, err := uc.Execute(context.Background(), RemoveDownloadInput{ID: d.ID.String(), DeleteFiles: true}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(fs.deleted) != 1 || fs.deleted[0] != d.SavePath {
		t.Fatalf("expected manual delete of %q, got %v", d.SavePath, fs.deleted)
	}
}

func TestRemoveDownloadKeepsFilesByDefault(t *testing.T) {
	store := &fakeStore{}
	client := newFakeClient()
	client.knows = false
	fs := &fakeFS{}
	d := storedDownload(t, store, testHash)

	uc := RemoveDownload{Store: store, Client: client, FS: fs}
	if _, err := uc.Execute(context.Background(), RemoveDownloadInput{ID: d.ID.String()}); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(fs.deleted) != 0 {
		t.Fatalf("files must be kept unless asked, got %v", fs.deleted)
	}
}

func TestListDownloads(t *testing.T) {
	store := &fakeStore{}
	a := storedDownload(t, store, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	b := storedDownload(t, store, "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	b.Status = domain.StateCompleted
	_ = store.Save(context.Background(), b)

	uc := ListDownloads{Store: store}

	all, err := uc.Execute(context.Background(), ListDownloadsInput{})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len(all) = %d", len(all))
	}

	completed, err := uc.Execute(context.Background(), ListDownloadsInput{Status: "completed"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(completed) != 1 || completed[0].ID != b.ID {
		t.Fatalf("completed = %+v", completed)
	}
	_ = a

	if _, err := uc.Execute(context.Background(), ListDownloadsInput{Status: "seeding"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("unknown status: expected validation error, got %v", err)
	}
}
