package workers

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/dskvich/signvideo/pkg/metrics"
	"github.com/dskvich/signvideo/pkg/storage"
)

type stubWorker struct {
	name string
	err  error
}

func (s stubWorker) Name() string { return s.name }

func (s stubWorker) Start(ctx context.Context) error {
	if s.err != nil {
		return s.err
	}
	<-ctx.Done()
	return nil
}

func TestGroupStopsOnFirstFailure(t *testing.T) {
	g := Group{
		stubWorker{name: "healthy"},
		stubWorker{name: "broken", err: errors.New("port in use")},
	}

	done := make(chan error, 1)
	go func() { done <- g.Start(context.Background()) }()

	select {
	case err := <-done:
		if err == nil || !strings.Contains(err.Error(), "broken: port in use") {
			t.Fatalf("Start() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("group did not stop after worker failure")
	}
}

func TestGroupStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Group{stubWorker{name: "a"}, stubWorker{name: "b"}}.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("group did not stop after cancel")
	}
}

func TestHTTPServerServesUntilCancelled(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	srv := NewHTTPServer(addr, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get("http://" + addr)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never came up: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusTeapot {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Start() error = %v", err)
	}
}

type fakeObjects struct {
	objects   []storage.StoredObject
	removed   []string
	removeErr map[string]error
}

func (f *fakeObjects) List(context.Context, string) ([]storage.StoredObject, error) {
	return f.objects, nil
}

func (f *fakeObjects) Remove(_ context.Context, key string) error {
	if err := f.removeErr[key]; err != nil {
		return err
	}
	f.removed = append(f.removed, key)
	return nil
}

type fakeRecords map[string]bool

func (f fakeRecords) ExistsByObjectKey(_ context.Context, key string) (bool, error) {
	if key == "videos/broken.mp4" {
		return false, errors.New("db down")
	}
	return f[key], nil
}

func TestReconcileRemovesOnlyOldOrphans(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	old := now.Add(-2 * time.Hour)

	objects := &fakeObjects{
		objects: []storage.StoredObject{
			{Key: "videos/recorded.mp4", LastModified: old},
			{Key: "videos/orphan.mp4", LastModified: old},
			{Key: "videos/fresh.mp4", LastModified: now.Add(-time.Minute)},
			{Key: "videos/broken.mp4", LastModified: old},
			{Key: "videos/stuck.mp4", LastModified: old},
		},
		removeErr: map[string]error{"videos/stuck.mp4": errors.New("access denied")},
	}
	records := fakeRecords{"videos/recorded.mp4": true}
	m := metrics.New(prometheus.NewRegistry())

	r := NewOrphanReconciler(objects, records, "videos/", time.Hour, 30*time.Minute, m)
	r.now = func() time.Time { return now }

	removed, err := r.Reconcile(context.Background())
	if removed != 1 || len(objects.removed) != 1 || objects.removed[0] != "videos/orphan.mp4" {
		t.Errorf("removed = %d %v, want only videos/orphan.mp4", removed, objects.removed)
	}
	if err == nil || !strings.Contains(err.Error(), "db down") || !strings.Contains(err.Error(), "access denied") {
		t.Errorf("expected aggregated errors, got %v", err)
	}
	if got := testutil.ToFloat64(m.OrphansRemoved); got != 1 {
		t.Errorf("orphans metric = %v, want 1", got)
	}
}
