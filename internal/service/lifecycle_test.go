package service

import (
	"bytes"
	"chatlog/internal/blob"
	"chatlog/internal/model"
	"chatlog/internal/repo"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

// flakyStore отказывает в удалении выбранных объектов, остальное делегирует локальному хранилищу.
type flakyStore struct {
	*blob.LocalStore
	mu       sync.Mutex
	failLocs map[blob.Locator]bool
}

func (f *flakyStore) Delete(ctx context.Context, loc blob.Locator) error {
	f.mu.Lock()
	fail := f.failLocs[loc]
	f.mu.Unlock()
	if fail {
		return errors.New("injected delete failure")
	}
	return f.LocalStore.Delete(ctx, loc)
}

type lifecycleEnv struct {
	svc   *MessageService
	blobs *flakyStore
	repo  repo.MessageRepository
	root  string
}

func newLifecycleEnv(t *testing.T) *lifecycleEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(gormsqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Message{}))
	// shared-cache sqlite отвечает SQLITE_LOCKED на параллельную запись, поэтому одно соединение
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = repo.CloseDB(db) })

	root := filepath.Join(t.TempDir(), "blobs")
	local, err := blob.NewLocalStore(root)
	require.NoError(t, err)
	fs := &flakyStore{LocalStore: local, failLocs: map[blob.Locator]bool{}}

	r := repo.NewMessageRepository(db)
	return &lifecycleEnv{
		svc:   NewMessageService(r, fs, zap.NewNop().Sugar(), Options{}),
		blobs: fs,
		repo:  r,
		root:  root,
	}
}

func (e *lifecycleEnv) resolvable(t *testing.T, loc string) bool {
	t.Helper()
	rc, err := e.blobs.Open(context.Background(), blob.Locator(loc))
	if errors.Is(err, blob.ErrNotFound) {
		return false
	}
	require.NoError(t, err)
	_ = rc.Close()
	return true
}

func TestLifecycle_CreateTextThenList(t *testing.T) {
	env := newLifecycleEnv(t)
	ctx := context.Background()

	created, err := env.svc.Create(ctx, CreateInput{User: "a", Text: "hello"})
	require.NoError(t, err)

	list, err := env.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
	assert.Equal(t, "a", list[0].User)
	assert.Equal(t, "hello", list[0].Text)
	assert.Nil(t, list[0].AttachmentLocator)
	assert.False(t, list[0].CreatedAt.IsZero())
}

func TestLifecycle_CreateFileIsFetchable(t *testing.T) {
	env := newLifecycleEnv(t)
	ctx := context.Background()
	data := []byte("\x89PNG\r\n\x1a\nbinary")

	msg, err := env.svc.Create(ctx, CreateInput{User: "a", File: &Attachment{Name: "x.png", Data: data}})
	require.NoError(t, err)
	require.True(t, msg.HasAttachment())

	rc, err := env.blobs.Open(ctx, blob.Locator(*msg.AttachmentLocator))
	require.NoError(t, err)
	got, _ := io.ReadAll(rc)
	_ = rc.Close()
	assert.Equal(t, data, got)

	content, err := env.svc.OpenAttachment(ctx, msg.ID)
	require.NoError(t, err)
	got, _ = io.ReadAll(content.Reader)
	_ = content.Reader.Close()
	assert.Equal(t, data, got)
	assert.Equal(t, "image/png", content.ContentType)
}

func TestLifecycle_ValidationLeavesStoresUnchanged(t *testing.T) {
	env := newLifecycleEnv(t)
	ctx := context.Background()

	_, err := env.svc.Create(ctx, CreateInput{User: "", Text: "x", File: &Attachment{Name: "a", Data: []byte{1}}})
	assert.True(t, errors.Is(err, ErrValidation))
	_, err = env.svc.Create(ctx, CreateInput{User: "a"})
	assert.True(t, errors.Is(err, ErrValidation))

	list, err := env.svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	// в каталоге хранилища нет ни одного объекта
	var files int
	_ = filepath.WalkDir(env.root, func(p string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			files++
		}
		return nil
	})
	assert.Zero(t, files)
}

func TestLifecycle_DeleteOneRemovesAttachment(t *testing.T) {
	env := newLifecycleEnv(t)
	ctx := context.Background()

	msg, err := env.svc.Create(ctx, CreateInput{User: "a", Text: "see file", File: &Attachment{Name: "doc.txt", Data: []byte("doc")}})
	require.NoError(t, err)
	loc := *msg.AttachmentLocator
	require.True(t, env.resolvable(t, loc))

	res, err := env.svc.DeleteOne(ctx, msg.ID)
	require.NoError(t, err)
	assert.True(t, res.Clean())
	assert.False(t, env.resolvable(t, loc))

	// повторная очистка по тому же локатору — NotFound, а не паника
	assert.True(t, errors.Is(env.blobs.Delete(ctx, blob.Locator(loc)), blob.ErrNotFound))

	_, err = env.svc.DeleteOne(ctx, msg.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLifecycle_DeleteOneUnknownIsNoop(t *testing.T) {
	env := newLifecycleEnv(t)
	ctx := context.Background()

	kept, err := env.svc.Create(ctx, CreateInput{User: "a", File: &Attachment{Name: "k", Data: []byte("k")}})
	require.NoError(t, err)

	_, err = env.svc.DeleteOne(ctx, uuid.NewString())
	assert.True(t, errors.Is(err, ErrNotFound))

	// id не в формате uuid — тоже «не найдено», а не сбой хранилища
	for _, id := range []string{"abc", "not-a-uuid"} {
		_, err = env.svc.DeleteOne(ctx, id)
		assert.True(t, errors.Is(err, ErrNotFound), "id %q: %v", id, err)
		assert.False(t, errors.Is(err, ErrMetadataStore), "id %q", id)

		_, err = env.svc.Get(ctx, id)
		assert.True(t, errors.Is(err, ErrNotFound), "id %q: %v", id, err)
	}

	list, err := env.svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.True(t, env.resolvable(t, *kept.AttachmentLocator))
}

func TestLifecycle_DeleteOneWarnsWhenCleanupFails(t *testing.T) {
	env := newLifecycleEnv(t)
	ctx := context.Background()

	msg, err := env.svc.Create(ctx, CreateInput{User: "a", File: &Attachment{Name: "f", Data: []byte("f")}})
	require.NoError(t, err)
	env.blobs.failLocs[blob.Locator(*msg.AttachmentLocator)] = true

	res, err := env.svc.DeleteOne(ctx, msg.ID)
	require.NoError(t, err)
	assert.False(t, res.Clean())
	assert.True(t, errors.Is(res.CleanupErr, ErrAttachmentStore))

	list, err := env.svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestLifecycle_DeleteAll(t *testing.T) {
	env := newLifecycleEnv(t)
	ctx := context.Background()

	var locs []string
	for i := 0; i < 5; i++ {
		in := CreateInput{User: "u", Text: fmt.Sprintf("m%d", i)}
		if i%2 == 0 {
			in.File = &Attachment{Name: fmt.Sprintf("f%d.bin", i), Data: bytes.Repeat([]byte{byte(i)}, 8)}
		}
		msg, err := env.svc.Create(ctx, in)
		require.NoError(t, err)
		if msg.HasAttachment() {
			locs = append(locs, *msg.AttachmentLocator)
		}
	}
	require.Len(t, locs, 3)

	res, err := env.svc.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Deleted)
	assert.Equal(t, 3, res.Attachments)
	assert.Zero(t, res.CleanupFailures)

	list, err := env.svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	for _, loc := range locs {
		assert.False(t, env.resolvable(t, loc))
	}
}

func TestLifecycle_DeleteAllWithBlobFailures(t *testing.T) {
	env := newLifecycleEnv(t)
	ctx := context.Background()

	a, err := env.svc.Create(ctx, CreateInput{User: "u", File: &Attachment{Name: "a", Data: []byte("a")}})
	require.NoError(t, err)
	b, err := env.svc.Create(ctx, CreateInput{User: "u", File: &Attachment{Name: "b", Data: []byte("b")}})
	require.NoError(t, err)
	env.blobs.failLocs[blob.Locator(*a.AttachmentLocator)] = true

	res, err := env.svc.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Deleted)
	assert.Equal(t, 1, res.CleanupFailures)

	list, err := env.svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.False(t, env.resolvable(t, *b.AttachmentLocator))
}

func TestLifecycle_TwoCreatesThenDeleteAll(t *testing.T) {
	env := newLifecycleEnv(t)
	ctx := context.Background()

	first, err := env.svc.Create(ctx, CreateInput{User: "a", File: &Attachment{Name: "1.txt", Data: []byte("1")}})
	require.NoError(t, err)
	second, err := env.svc.Create(ctx, CreateInput{User: "b", File: &Attachment{Name: "2.txt", Data: []byte("2")}})
	require.NoError(t, err)

	list, err := env.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)

	_, err = env.svc.DeleteAll(ctx)
	require.NoError(t, err)

	list, err = env.svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.False(t, env.resolvable(t, *first.AttachmentLocator))
	assert.False(t, env.resolvable(t, *second.AttachmentLocator))
}

func TestLifecycle_ConcurrentDeleteSameID(t *testing.T) {
	env := newLifecycleEnv(t)
	ctx := context.Background()

	msg, err := env.svc.Create(ctx, CreateInput{User: "a", File: &Attachment{Name: "r", Data: []byte("r")}})
	require.NoError(t, err)

	const callers = 4
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.DeleteOne(ctx, msg.ID)
		}(i)
	}
	wg.Wait()

	var ok, notFound int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrNotFound):
			notFound++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, callers-1, notFound)
	assert.False(t, env.resolvable(t, *msg.AttachmentLocator))
}
