package tier

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
)

// fakeObjectAPI records calls and can fail the first N puts to exercise the
// retry path.
type fakeObjectAPI struct {
	objects  map[string]string // object -> local path
	failPuts int
	putCalls int
	removed  []string
}

func newFakeObjectAPI() *fakeObjectAPI {
	return &fakeObjectAPI{objects: make(map[string]string)}
}

func (f *fakeObjectAPI) FPutObject(_ context.Context, _, object, filePath string, _ minio.PutObjectOptions) (minio.UploadInfo, error) {
	f.putCalls++
	if f.failPuts > 0 {
		f.failPuts--
		return minio.UploadInfo{}, errors.New("transient storage error")
	}
	f.objects[object] = filePath
	return minio.UploadInfo{Key: object}, nil
}

func (f *fakeObjectAPI) ListObjects(_ context.Context, _ string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo, len(f.objects))
	for object := range f.objects {
		if len(opts.Prefix) == 0 || (len(object) >= len(opts.Prefix) && object[:len(opts.Prefix)] == opts.Prefix) {
			ch <- minio.ObjectInfo{Key: object}
		}
	}
	close(ch)
	return ch
}

func (f *fakeObjectAPI) RemoveObject(_ context.Context, _, object string, _ minio.RemoveObjectOptions) error {
	delete(f.objects, object)
	f.removed = append(f.removed, object)
	return nil
}

func testLifecycle(api objectAPI, retentionDays int) *Lifecycle {
	return &Lifecycle{
		client:        api,
		bucket:        "snapshots",
		retentionDays: retentionDays,
		log:           slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}
}

func TestUploadDayRetries(t *testing.T) {
	fake := newFakeObjectAPI()
	fake.failPuts = 2

	l := testLifecycle(fake, 0)
	if err := l.UploadDay(context.Background(), "/tmp/20240301.parquet", "tier1", "2024-03-01"); err != nil {
		t.Fatalf("UploadDay: %v", err)
	}
	if fake.putCalls != 3 {
		t.Errorf("put called %d times, want 3 (two retries)", fake.putCalls)
	}
	if _, ok := fake.objects["tier1/20240301.parquet"]; !ok {
		t.Errorf("uploaded objects = %v", fake.objects)
	}
}

func TestApplyRetention(t *testing.T) {
	fake := newFakeObjectAPI()
	fake.objects["tier1/20240101.parquet"] = "x"
	fake.objects["tier1/20240215.parquet"] = "x"
	fake.objects["tier1/20240301.parquet"] = "x"
	fake.objects["tier1/manifest.txt"] = "x" // not a day object, untouched

	l := testLifecycle(fake, 30)
	today := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	removed, err := l.ApplyRetention(context.Background(), "tier1", today)
	if err != nil {
		t.Fatalf("ApplyRetention: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed %d objects, want 1", removed)
	}
	if _, still := fake.objects["tier1/20240101.parquet"]; still {
		t.Error("20240101 should have been removed")
	}
	if _, ok := fake.objects["tier1/20240215.parquet"]; !ok {
		t.Error("20240215 is inside the window and must stay")
	}
}

func TestApplyRetentionDisabled(t *testing.T) {
	fake := newFakeObjectAPI()
	fake.objects["tier1/19990101.parquet"] = "x"

	l := testLifecycle(fake, 0)
	removed, err := l.ApplyRetention(context.Background(), "tier1", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if removed != 0 || len(fake.objects) != 1 {
		t.Error("zero retention window must keep everything")
	}
}

func TestExpiredDays(t *testing.T) {
	days := []string{"20240101", "20240130", "20240131", "20240301", "garbage"}
	today := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	expired := ExpiredDays(days, today, 30)
	// Cutoff is 20240131: strictly older days expire.
	want := map[string]bool{"20240101": true, "20240130": true}
	if len(expired) != len(want) {
		t.Fatalf("expired = %v, want %v", expired, want)
	}
	for _, d := range expired {
		if !want[d] {
			t.Errorf("unexpected expired day %q", d)
		}
	}
}

func TestObjectName(t *testing.T) {
	if got := ObjectName("tier2", "2024-03-01"); got != "tier2/20240301.parquet" {
		t.Errorf("ObjectName = %q", got)
	}
}
