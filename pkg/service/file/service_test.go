package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anzhiyu-c/anheyu-docs/internal/infra/storage"
	"github.com/anzhiyu-c/anheyu-docs/internal/pkg/auth"
	"github.com/anzhiyu-c/anheyu-docs/pkg/config"
	"github.com/anzhiyu-c/anheyu-docs/pkg/constant"
	"github.com/anzhiyu-c/anheyu-docs/pkg/domain/model"
	"github.com/anzhiyu-c/anheyu-docs/pkg/service/converter"
	"github.com/anzhiyu-c/anheyu-docs/pkg/service/utility"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testScope   = "10.0.0.8"
	maxTestSize = 5 * 1024 * 1024
)

type fakeConverter struct {
	resp     *converter.Response
	err      error
	requests []*converter.Request
}

func (f *fakeConverter) Convert(ctx context.Context, req *converter.Request) (*converter.Response, error) {
	f.requests = append(f.requests, req)
	return f.resp, f.err
}

// fakeFetcher 按地址返回预置内容，未登记的地址视为远程错误
type fakeFetcher struct {
	contents map[string][]byte
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string, w io.Writer, limit int64) (int64, error) {
	data, ok := f.contents[rawURL]
	if !ok {
		return 0, fmt.Errorf("%w: '%s' 返回状态码 404", constant.ErrRemoteFetch, rawURL)
	}
	if limit > 0 && int64(len(data)) > limit+1 {
		data = data[:limit+1]
	}
	n, err := w.Write(data)
	return int64(n), err
}

type testEnv struct {
	svc       *fileService
	store     *storage.LocalStorage
	converter *fakeConverter
	fetcher   *fakeFetcher
	tempDir   string
}

func newTestEnv(t *testing.T, signer auth.Signer) *testEnv {
	t.Helper()
	base := t.TempDir()
	tempDir := filepath.Join(base, "temp")
	settings := config.NewDocumentSettings(config.NewConfigFromMap(map[string]any{
		config.KeyServerPublicURL:    "http://docs.local",
		config.KeyStoragePath:        filepath.Join(base, "files"),
		config.KeyStorageTempDir:     tempDir,
		config.KeyStorageMaxFileSize: maxTestSize,
	}))
	store := storage.NewLocalStorage(settings.StorageRoot, tempDir, settings.PublicURL)
	conv := &fakeConverter{}
	fetcher := &fakeFetcher{contents: map[string][]byte{}}

	svc := NewFileService(settings, store, conv, fetcher, signer, utility.NewMemoryCacheService())
	return &testEnv{svc: svc.(*fileService), store: store, converter: conv, fetcher: fetcher, tempDir: tempDir}
}

func (e *testEnv) upload(t *testing.T, name string, content []byte) *model.UploadResult {
	t.Helper()
	res, err := e.svc.Upload(context.Background(), &model.UploadRequest{
		FileName: name,
		Size:     int64(len(content)),
		Body:     bytes.NewReader(content),
		User:     model.Identity{UserID: "uid-7", UserName: "Mia", Scope: testScope},
	})
	require.NoError(t, err)
	return res
}

func (e *testEnv) path(t *testing.T, name string) string {
	t.Helper()
	p, err := e.store.StoragePath(name, testScope)
	require.NoError(t, err)
	return p
}

func readCreatedInfo(t *testing.T, histDir string) model.CreatedInfo {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(histDir, constant.CreatedInfoFileName))
	require.NoError(t, err)
	var info model.CreatedInfo
	require.NoError(t, json.Unmarshal(data, &info))
	return info
}

func TestUpload_PersistsFileAndHistory(t *testing.T) {
	env := newTestEnv(t, nil)

	res := env.upload(t, "report.docx", make([]byte, 500*1024))

	assert.True(t, res.Persisted())
	assert.Equal(t, "report.docx", res.FileName)
	assert.Equal(t, int64(500*1024), res.Size)

	p := env.path(t, "report.docx")
	histDir := env.store.HistoryDir(p)
	assert.Equal(t, 1, env.store.FileVersionCount(histDir))

	info := readCreatedInfo(t, histDir)
	assert.Equal(t, "uid-7", info.UID)
	assert.Equal(t, "Mia", info.UserName)
	assert.NotEmpty(t, info.Created)
}

func TestUpload_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		size     int64
		reason   string
	}{
		{"空文件", "empty.docx", 0, constant.ReasonSize},
		{"超过上限", "huge.docx", maxTestSize + 1, constant.ReasonSize},
		{"不支持的类型", "setup.exe", 1024, constant.ReasonType},
		{"大小优先于类型", "setup.exe", 0, constant.ReasonSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			_, err := env.svc.Upload(context.Background(), &model.UploadRequest{
				FileName: tt.fileName,
				Size:     tt.size,
				Body:     bytes.NewReader([]byte("x")),
				User:     model.Identity{Scope: testScope},
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, constant.ErrValidation)

			var vErr *constant.ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.reason, vErr.Reason)

			_, statErr := os.Stat(env.path(t, tt.fileName))
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}

func TestUpload_BodyLargerThanDeclared(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.svc.Upload(context.Background(), &model.UploadRequest{
		FileName: "liar.docx",
		Size:     10,
		Body:     bytes.NewReader(make([]byte, maxTestSize+10)),
		User:     model.Identity{Scope: testScope},
	})
	assert.ErrorIs(t, err, constant.ErrValidation)

	_, statErr := os.Stat(env.path(t, "liar.docx"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestUpload_CorrectsCollidingName(t *testing.T) {
	env := newTestEnv(t, nil)

	first := env.upload(t, "report.docx", []byte("one"))
	second := env.upload(t, "report.docx", []byte("two"))

	assert.Equal(t, "report.docx", first.FileName)
	assert.Equal(t, "report (1).docx", second.FileName)
}

func TestUpload_DefaultIdentity(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.svc.Upload(context.Background(), &model.UploadRequest{
		FileName: "anon.xlsx",
		Size:     3,
		Body:     bytes.NewReader([]byte("abc")),
		User:     model.Identity{Scope: testScope},
	})
	require.NoError(t, err)

	info := readCreatedInfo(t, env.store.HistoryDir(env.path(t, "anon.xlsx")))
	assert.Equal(t, constant.DefaultUserIDPage, info.UID)
	assert.Equal(t, constant.DefaultUserName, info.UserName)
}

func TestUploadFromURL(t *testing.T) {
	env := newTestEnv(t, nil)
	env.fetcher.contents["http://remote.example/files/remote.docx"] = []byte("remote body")

	res, err := env.svc.UploadFromURL(context.Background(), &model.URLUploadRequest{
		URL:  "http://remote.example/files/remote.docx",
		User: model.Identity{UserID: "uid-3", Scope: testScope},
	})
	require.NoError(t, err)
	assert.Equal(t, model.UploadStatusPersisted, res.Status)
	assert.Equal(t, "remote.docx", res.FileName)

	data, err := os.ReadFile(env.path(t, "remote.docx"))
	require.NoError(t, err)
	assert.Equal(t, "remote body", string(data))
	assert.Equal(t, "uid-3", readCreatedInfo(t, env.store.HistoryDir(env.path(t, "remote.docx"))).UID)
}

func TestUploadFromURL_FetchFailed(t *testing.T) {
	env := newTestEnv(t, nil)

	res, err := env.svc.UploadFromURL(context.Background(), &model.URLUploadRequest{
		URL:  "http://remote.example/missing.docx",
		User: model.Identity{Scope: testScope},
	})
	require.NoError(t, err)
	assert.Equal(t, model.UploadStatusFetchFailed, res.Status)
	assert.Equal(t, "missing.docx", res.FileName)
	assert.Contains(t, res.Reason, "404")
	assert.False(t, res.Persisted())

	_, statErr := os.Stat(env.path(t, "missing.docx"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestUploadFromURL_Rejections(t *testing.T) {
	env := newTestEnv(t, nil)
	env.fetcher.contents["http://remote.example/big.docx"] = make([]byte, maxTestSize+5)

	_, err := env.svc.UploadFromURL(context.Background(), &model.URLUploadRequest{URL: "http://remote.example/tool.exe"})
	assert.ErrorIs(t, err, constant.ErrValidation)

	_, err = env.svc.UploadFromURL(context.Background(), &model.URLUploadRequest{
		URL:  "http://remote.example/big.docx",
		User: model.Identity{Scope: testScope},
	})
	var vErr *constant.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, constant.ReasonSize, vErr.Reason)

	_, err = env.svc.UploadFromURL(context.Background(), &model.URLUploadRequest{URL: "not a url"})
	assert.ErrorIs(t, err, constant.ErrBadRequest)
}

func TestConvert_InProgressLeavesFileUntouched(t *testing.T) {
	env := newTestEnv(t, nil)
	env.upload(t, "legacy.doc", []byte("old format"))
	env.converter.resp = &converter.Response{Percent: 45}

	res, err := env.svc.Convert(context.Background(), &model.ConvertRequest{
		FileName: "legacy.doc",
		User:     model.Identity{Scope: testScope},
	})
	require.NoError(t, err)
	assert.Equal(t, model.ConvertStatusInProgress, res.Status)
	assert.Equal(t, 45, res.Step)
	assert.Equal(t, "legacy.doc", res.FileName)

	require.Len(t, env.converter.requests, 1)
	req := env.converter.requests[0]
	assert.Equal(t, ".doc", req.FromExt)
	assert.Equal(t, ".docx", req.ToExt)
	assert.False(t, req.Async)
	assert.NotEmpty(t, req.Key)
	assert.Equal(t, env.store.FileURL("legacy.doc", testScope), req.FileURL)

	_, err = os.Stat(env.path(t, "legacy.doc"))
	assert.NoError(t, err)
	_, err = os.Stat(env.path(t, "legacy.docx"))
	assert.True(t, os.IsNotExist(err))

	progress, err := env.svc.ConvertProgress(context.Background(), "legacy.doc", testScope)
	require.NoError(t, err)
	assert.Equal(t, 45, progress.Step)
}

func TestConvertProgressList(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.upload(t, "legacy.doc", []byte("old"))
	env.upload(t, "archive.doc", []byte("older"))
	env.converter.resp = &converter.Response{Percent: 60}

	for _, name := range []string{"legacy.doc", "archive.doc"} {
		_, err := env.svc.Convert(ctx, &model.ConvertRequest{FileName: name, User: model.Identity{Scope: testScope}})
		require.NoError(t, err)
	}
	// 前缀相同的其它作用域和其它用户的记录不应出现
	require.NoError(t, env.svc.cacheSvc.Set(ctx, progressKey(testScope+":9", "x.doc"), `{"filename":"x.doc","step":5}`, time.Minute))
	require.NoError(t, env.svc.cacheSvc.Set(ctx, progressKey("10.0.0.9", "y.doc"), `{"filename":"y.doc","step":5}`, time.Minute))

	list, err := env.svc.ConvertProgressList(ctx, testScope)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "archive.doc", list[0].FileName)
	assert.Equal(t, "legacy.doc", list[1].FileName)
	assert.Equal(t, 60, list[1].Step)

	require.NoError(t, env.svc.Remove(ctx, "legacy.doc", testScope))
	list, err = env.svc.ConvertProgressList(ctx, testScope)
	require.NoError(t, err)
	require.Len(t, list, 1)

	empty, err := env.svc.ConvertProgressList(ctx, "[odd*scope]")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestProgressPattern_EscapesGlob(t *testing.T) {
	assert.Equal(t, `convert:progress:10.0.0.8:*`, progressPattern("10.0.0.8"))
	assert.Equal(t, `convert:progress:a\*b\[c\]:*`, progressPattern("a*b[c]"))
}

// blockingConverter 在 release 关闭前一直阻塞，用来制造并发中的转换
type blockingConverter struct {
	calls   atomic.Int32
	release chan struct{}
}

func (b *blockingConverter) Convert(ctx context.Context, req *converter.Request) (*converter.Response, error) {
	b.calls.Add(1)
	<-b.release
	return &converter.Response{Percent: 30}, nil
}

func TestConvert_MergesConcurrentRequests(t *testing.T) {
	env := newTestEnv(t, nil)
	env.upload(t, "legacy.doc", []byte("old format"))
	blocking := &blockingConverter{release: make(chan struct{})}
	env.svc.converter = blocking

	req := &model.ConvertRequest{FileName: "legacy.doc", User: model.Identity{Scope: testScope}}
	results := make([]*model.ConvertResult, 2)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := env.svc.Convert(context.Background(), req)
			assert.NoError(t, err)
			results[i] = res
		}(i)
		if i == 0 {
			require.Eventually(t, func() bool { return blocking.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
		}
	}
	time.Sleep(100 * time.Millisecond)
	close(blocking.release)
	wg.Wait()

	assert.Equal(t, int32(1), blocking.calls.Load())
	for _, res := range results {
		require.NotNil(t, res)
		assert.Equal(t, model.ConvertStatusInProgress, res.Status)
		assert.Equal(t, 30, res.Step)
	}
}

func TestConvert_DoneReplacesFileAndHistory(t *testing.T) {
	env := newTestEnv(t, nil)
	env.upload(t, "legacy.doc", []byte("old format"))
	oldHist := env.store.HistoryDir(env.path(t, "legacy.doc"))

	env.converter.resp = &converter.Response{Percent: 100, FileURL: "http://converter.local/out.docx"}
	env.fetcher.contents["http://converter.local/out.docx"] = []byte("new format")

	res, err := env.svc.Convert(context.Background(), &model.ConvertRequest{
		FileName: "legacy.doc",
		User:     model.Identity{UserID: "uid-9", Scope: testScope},
	})
	require.NoError(t, err)
	assert.Equal(t, model.ConvertStatusDone, res.Status)
	assert.Equal(t, 100, res.Step)
	assert.Equal(t, "legacy.docx", res.FileName)

	data, err := os.ReadFile(env.path(t, "legacy.docx"))
	require.NoError(t, err)
	assert.Equal(t, "new format", string(data))

	_, err = os.Stat(env.path(t, "legacy.doc"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(oldHist)
	assert.True(t, os.IsNotExist(err))

	newHist := env.store.HistoryDir(env.path(t, "legacy.docx"))
	assert.Equal(t, 1, env.store.FileVersionCount(newHist))
	assert.Equal(t, "uid-9", readCreatedInfo(t, newHist).UID)

	_, err = env.svc.ConvertProgress(context.Background(), "legacy.doc", testScope)
	assert.ErrorIs(t, err, constant.ErrNotFound)
}

func TestConvert_SkipsInternalFormats(t *testing.T) {
	env := newTestEnv(t, nil)
	env.upload(t, "report.docx", []byte("body"))

	res, err := env.svc.Convert(context.Background(), &model.ConvertRequest{
		FileName: "report.docx",
		User:     model.Identity{Scope: testScope},
	})
	require.NoError(t, err)
	assert.Equal(t, model.ConvertStatusSkipped, res.Status)
	assert.Equal(t, "report.docx", res.FileName)
	assert.Empty(t, env.converter.requests)
}

func TestConvert_Errors(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.svc.Convert(context.Background(), &model.ConvertRequest{
		FileName: "nothing.doc",
		User:     model.Identity{Scope: testScope},
	})
	assert.ErrorIs(t, err, constant.ErrNotFound)

	env.upload(t, "legacy.doc", []byte("old"))
	env.converter.err = fmt.Errorf("%w: %s", constant.ErrConvert, converter.ErrorMessage(-3))
	_, err = env.svc.Convert(context.Background(), &model.ConvertRequest{
		FileName: "legacy.doc",
		User:     model.Identity{Scope: testScope},
	})
	assert.ErrorIs(t, err, constant.ErrConvert)

	_, statErr := os.Stat(env.path(t, "legacy.doc"))
	assert.NoError(t, statErr)
}

func TestTrack_SaveArchivesPreviousVersion(t *testing.T) {
	env := newTestEnv(t, nil)
	env.upload(t, "report.docx", []byte("v1"))
	env.fetcher.contents["http://ds.local/cache/output.docx"] = []byte("v2")
	env.fetcher.contents["http://ds.local/cache/changes.zip"] = []byte("PK-diff")

	changes := `{"changes":[{"created":"2025-10-16 10:00:00","user":{"id":"uid-7","name":"Mia"}}],"serverVersion":"7.0"}`
	quoted, err := json.Marshal(changes)
	require.NoError(t, err)

	res, err := env.svc.Track(context.Background(), &model.TrackRequest{
		FileName:    "report.docx",
		UserAddress: testScope,
		Payload: &model.TrackPayload{
			Key:            "rev-1",
			Status:         constant.TrackStatusMustSave,
			URL:            "http://ds.local/cache/output.docx",
			ChangesURL:     "http://ds.local/cache/changes.zip",
			ChangesHistory: quoted,
			Users:          []string{"uid-7"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Error)

	p := env.path(t, "report.docx")
	histDir := env.store.HistoryDir(p)
	verDir := env.store.VersionDir(histDir, 1)
	assert.Equal(t, 2, env.store.FileVersionCount(histDir))

	assertFile(t, p, "v2")
	assertFile(t, filepath.Join(verDir, "prev.docx"), "v1")
	assertFile(t, filepath.Join(verDir, constant.DiffFileName), "PK-diff")
	assertFile(t, filepath.Join(verDir, constant.KeyFileName), "rev-1")
	assertFile(t, filepath.Join(verDir, constant.ChangesFileName), changes)
}

func TestTrack_SaveWithHistoryObject(t *testing.T) {
	env := newTestEnv(t, nil)
	env.upload(t, "sheet.xlsx", []byte("v1"))
	env.fetcher.contents["http://ds.local/out.xlsx"] = []byte("v2")

	history := `{"changes":[],"serverVersion":"7.1"}`
	_, err := env.svc.Track(context.Background(), &model.TrackRequest{
		FileName:    "sheet.xlsx",
		UserAddress: testScope,
		Payload: &model.TrackPayload{
			Key:     "rev-x",
			Status:  constant.TrackStatusCorrupted,
			URL:     "http://ds.local/out.xlsx",
			History: json.RawMessage(history),
		},
	})
	require.NoError(t, err)

	verDir := env.store.VersionDir(env.store.HistoryDir(env.path(t, "sheet.xlsx")), 1)
	assertFile(t, filepath.Join(verDir, constant.ChangesFileName), history)
	_, err = os.Stat(filepath.Join(verDir, constant.DiffFileName))
	assert.True(t, os.IsNotExist(err))
}

func TestTrack_FetchFailureKeepsCurrentVersion(t *testing.T) {
	env := newTestEnv(t, nil)
	env.upload(t, "report.docx", []byte("v1"))

	_, err := env.svc.Track(context.Background(), &model.TrackRequest{
		FileName:    "report.docx",
		UserAddress: testScope,
		Payload:     &model.TrackPayload{Key: "k", Status: constant.TrackStatusMustSave, URL: "http://ds.local/gone.docx"},
	})
	assert.ErrorIs(t, err, constant.ErrRemoteFetch)

	p := env.path(t, "report.docx")
	assertFile(t, p, "v1")
	assert.Equal(t, 1, env.store.FileVersionCount(env.store.HistoryDir(p)))
}

func TestTrack_SaveMissingFileLeavesNoHistory(t *testing.T) {
	env := newTestEnv(t, nil)
	env.fetcher.contents["http://ds.local/out.docx"] = []byte("orphan")

	_, err := env.svc.Track(context.Background(), &model.TrackRequest{
		FileName:    "gone.docx",
		UserAddress: testScope,
		Payload:     &model.TrackPayload{Key: "k", Status: constant.TrackStatusMustSave, URL: "http://ds.local/out.docx"},
	})
	assert.ErrorIs(t, err, constant.ErrNotFound)

	histDir := env.store.HistoryDir(env.path(t, "gone.docx"))
	_, err = os.Stat(histDir)
	assert.True(t, os.IsNotExist(err))

	env.upload(t, "gone.docx", []byte("fresh"))
	assert.Equal(t, 1, env.store.FileVersionCount(histDir))
}

func TestUpload_ReplacesStaleHistory(t *testing.T) {
	env := newTestEnv(t, nil)
	env.upload(t, "report.docx", []byte("v1"))
	env.fetcher.contents["http://ds.local/out.docx"] = []byte("v2")
	_, err := env.svc.Track(context.Background(), &model.TrackRequest{
		FileName:    "report.docx",
		UserAddress: testScope,
		Payload:     &model.TrackPayload{Key: "k", Status: constant.TrackStatusMustSave, URL: "http://ds.local/out.docx"},
	})
	require.NoError(t, err)

	p := env.path(t, "report.docx")
	histDir := env.store.HistoryDir(p)
	require.Equal(t, 2, env.store.FileVersionCount(histDir))

	// 文件被绕过服务直接删除，历史目录残留
	require.NoError(t, os.Remove(p))

	res := env.upload(t, "report.docx", []byte("again"))
	assert.Equal(t, "report.docx", res.FileName)
	assert.Equal(t, 1, env.store.FileVersionCount(histDir))
	_, err = os.Stat(env.store.VersionDir(histDir, 1))
	assert.True(t, os.IsNotExist(err))
}

func TestTrack_ForceSaveThenSaveDropsCopy(t *testing.T) {
	env := newTestEnv(t, nil)
	env.upload(t, "report.docx", []byte("v1"))
	env.fetcher.contents["http://ds.local/force.docx"] = []byte("forced")
	env.fetcher.contents["http://ds.local/final.docx"] = []byte("final")

	_, err := env.svc.Track(context.Background(), &model.TrackRequest{
		FileName:    "report.docx",
		UserAddress: testScope,
		Payload:     &model.TrackPayload{Key: "k", Status: constant.TrackStatusMustForceSave, URL: "http://ds.local/force.docx"},
	})
	require.NoError(t, err)

	forcePath, err := env.store.ForcesavePath("report.docx", testScope, false)
	require.NoError(t, err)
	require.NotEmpty(t, forcePath)
	assertFile(t, forcePath, "forced")
	assertFile(t, env.path(t, "report.docx"), "v1")

	_, err = env.svc.Track(context.Background(), &model.TrackRequest{
		FileName:    "report.docx",
		UserAddress: testScope,
		Payload:     &model.TrackPayload{Key: "k", Status: constant.TrackStatusMustSave, URL: "http://ds.local/final.docx"},
	})
	require.NoError(t, err)

	_, err = os.Stat(forcePath)
	assert.True(t, os.IsNotExist(err))
}

func TestTrack_ForceSaveKeepsForeignFormatInHistory(t *testing.T) {
	env := newTestEnv(t, nil)
	env.upload(t, "report.docx", []byte("v1"))
	env.converter.err = fmt.Errorf("%w: %s", constant.ErrConvert, converter.ErrorMessage(-4))
	env.fetcher.contents["http://ds.local/force.odt"] = []byte("forced")

	_, err := env.svc.Track(context.Background(), &model.TrackRequest{
		FileName:    "report.docx",
		UserAddress: testScope,
		Payload: &model.TrackPayload{
			Key:      "k",
			Status:   constant.TrackStatusMustForceSave,
			URL:      "http://ds.local/force.odt",
			FileType: "odt",
		},
	})
	require.NoError(t, err)

	histDir := env.store.HistoryDir(env.path(t, "report.docx"))
	assertFile(t, filepath.Join(histDir, "report.odt"), "forced")
	assertFile(t, env.path(t, "report.docx"), "v1")

	_, err = os.Stat(env.path(t, "report.odt"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(env.store.HistoryDir(env.path(t, "report.odt")))
	assert.True(t, os.IsNotExist(err))
}

func TestTrack_ForceSaveMissingFile(t *testing.T) {
	env := newTestEnv(t, nil)
	env.fetcher.contents["http://ds.local/force.docx"] = []byte("forced")

	_, err := env.svc.Track(context.Background(), &model.TrackRequest{
		FileName:    "gone.docx",
		UserAddress: testScope,
		Payload:     &model.TrackPayload{Key: "k", Status: constant.TrackStatusMustForceSave, URL: "http://ds.local/force.docx"},
	})
	assert.ErrorIs(t, err, constant.ErrNotFound)

	_, err = os.Stat(env.store.HistoryDir(env.path(t, "gone.docx")))
	assert.True(t, os.IsNotExist(err))
}

func TestTrack_IgnoresInformationalStatuses(t *testing.T) {
	env := newTestEnv(t, nil)
	env.upload(t, "report.docx", []byte("v1"))

	for _, status := range []constant.TrackStatus{constant.TrackStatusEditing, constant.TrackStatusClosed} {
		res, err := env.svc.Track(context.Background(), &model.TrackRequest{
			FileName:    "report.docx",
			UserAddress: testScope,
			Payload:     &model.TrackPayload{Key: "k", Status: status},
		})
		require.NoError(t, err)
		assert.Equal(t, 0, res.Error)
	}
	assert.Equal(t, 1, env.store.FileVersionCount(env.store.HistoryDir(env.path(t, "report.docx"))))
}

func TestTrack_Signing(t *testing.T) {
	signer := auth.NewTokenSigner("track-secret")
	env := newTestEnv(t, signer)
	env.upload(t, "report.docx", []byte("v1"))
	env.fetcher.contents["http://ds.local/force.docx"] = []byte("forced")

	_, err := env.svc.Track(context.Background(), &model.TrackRequest{
		FileName:    "report.docx",
		UserAddress: testScope,
		Payload:     &model.TrackPayload{Key: "k", Status: constant.TrackStatusMustForceSave, URL: "http://ds.local/force.docx"},
	})
	assert.ErrorIs(t, err, constant.ErrInvalidToken)

	_, err = env.svc.Track(context.Background(), &model.TrackRequest{
		FileName:    "report.docx",
		UserAddress: testScope,
		Payload:     &model.TrackPayload{Token: "garbage"},
	})
	assert.ErrorIs(t, err, constant.ErrInvalidToken)

	headerToken, err := signer.Encode(map[string]any{
		"payload": map[string]any{
			"key":    "k",
			"status": int(constant.TrackStatusMustForceSave),
			"url":    "http://ds.local/force.docx",
		},
	})
	require.NoError(t, err)

	// 请求体中的字段不可信，以令牌中的声明为准
	res, err := env.svc.Track(context.Background(), &model.TrackRequest{
		FileName:    "report.docx",
		UserAddress: testScope,
		Payload:     &model.TrackPayload{Status: constant.TrackStatusEditing},
		HeaderToken: headerToken,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Error)

	forcePath, err := env.store.ForcesavePath("report.docx", testScope, false)
	require.NoError(t, err)
	assertFile(t, forcePath, "forced")
}

func TestRemoveAndListing(t *testing.T) {
	env := newTestEnv(t, nil)
	env.upload(t, "a.docx", []byte("aaaa"))
	env.upload(t, "b.doc", make([]byte, 2048))

	items, err := env.svc.List(context.Background(), testScope)
	require.NoError(t, err)
	require.Len(t, items, 2)
	byName := map[string]*model.FileListItem{}
	for _, item := range items {
		byName[item.Name] = item
	}
	assert.True(t, byName["a.docx"].CanEdit)
	assert.False(t, byName["a.docx"].CanConvert)
	assert.True(t, byName["b.doc"].CanConvert)
	assert.Equal(t, "word", byName["b.doc"].DocumentType)
	assert.Equal(t, 1, byName["b.doc"].Version)

	infos, err := env.svc.FilesInfo(context.Background(), testScope, "")
	require.NoError(t, err)
	require.Len(t, infos, 2)

	key, err := env.store.DocumentKey("b.doc", testScope)
	require.NoError(t, err)
	one, err := env.svc.FilesInfo(context.Background(), testScope, key)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "b.doc", one[0].Title)
	assert.Equal(t, "2.00 KB", one[0].ContentLength)
	assert.Equal(t, int64(2048), one[0].PureContentLength)

	_, err = env.svc.FilesInfo(context.Background(), testScope, "no-such-id")
	assert.ErrorIs(t, err, constant.ErrNotFound)

	require.NoError(t, env.svc.Remove(context.Background(), "a.docx", testScope))
	require.NoError(t, env.svc.Remove(context.Background(), "a.docx", testScope))
	items, err = env.svc.List(context.Background(), testScope)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestCleanupStaging(t *testing.T) {
	env := newTestEnv(t, nil)
	now := time.Now()
	env.svc.now = func() time.Time { return now }

	stale := filepath.Join(env.tempDir, stagingPrefix+"old.tmp")
	fresh := filepath.Join(env.tempDir, stagingPrefix+"new.tmp")
	other := filepath.Join(env.tempDir, "keep.tmp")
	for _, p := range []string{stale, fresh, other} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0644))
	}
	old := now.Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))
	require.NoError(t, os.Chtimes(other, old, old))

	removed, err := env.svc.CleanupStaging(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
	_, err = os.Stat(other)
	assert.NoError(t, err)
}

func TestHTTPFetcher(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(5 * time.Second)

	var buf bytes.Buffer
	n, err := fetcher.Fetch(context.Background(), server.URL+"/doc", &buf, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)
	assert.Equal(t, "0123456789", buf.String())

	buf.Reset()
	n, err = fetcher.Fetch(context.Background(), server.URL+"/doc", &buf, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	_, err = fetcher.Fetch(context.Background(), server.URL+"/missing", io.Discard, 0)
	assert.ErrorIs(t, err, constant.ErrRemoteFetch)
}

func assertFile(t *testing.T, p, want string) {
	t.Helper()
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, want, string(data))
}
