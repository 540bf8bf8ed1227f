package publish

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/creatorflow/internal/model"
)

// --- モック定義 ---

// mockPublisher はPublisherのモック。
type mockPublisher struct {
	name        model.Platform
	publishFunc func(ctx context.Context, creds json.RawMessage, post Post) (*Output, error)
}

func (m *mockPublisher) Name() model.Platform {
	return m.name
}

func (m *mockPublisher) Publish(ctx context.Context, creds json.RawMessage, post Post) (*Output, error) {
	if m.publishFunc != nil {
		return m.publishFunc(ctx, creds, post)
	}
	return &Output{ID: "id-" + string(m.name)}, nil
}

// mockCredRepo はSocialCredentialRepositoryのモック。
type mockCredRepo struct {
	findByUserAndPlatformFunc func(ctx context.Context, userID string, platform model.Platform) (*model.SocialCredential, error)
}

func (m *mockCredRepo) Upsert(ctx context.Context, cred *model.SocialCredential) (*model.SocialCredential, error) {
	return cred, nil
}

func (m *mockCredRepo) FindByUserAndPlatform(ctx context.Context, userID string, platform model.Platform) (*model.SocialCredential, error) {
	if m.findByUserAndPlatformFunc != nil {
		return m.findByUserAndPlatformFunc(ctx, userID, platform)
	}
	return &model.SocialCredential{UserID: userID, Platform: platform, Data: json.RawMessage(`{}`)}, nil
}

func (m *mockCredRepo) ListByUserID(ctx context.Context, userID string) ([]*model.SocialCredential, error) {
	return nil, nil
}

// mockPublishMetrics はPublishMetricsのモック。
type mockPublishMetrics struct {
	mu       sync.Mutex
	outcomes map[string]string
}

func (m *mockPublishMetrics) RecordPublish(platform string, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcomes == nil {
		m.outcomes = make(map[string]string)
	}
	m.outcomes[platform] = outcome
}

func (m *mockPublishMetrics) RecordPublishLatency(platform string, duration time.Duration) {}

func (m *mockPublishMetrics) outcome(platform string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outcomes[platform]
}

// --- Fanout のテスト ---

func TestFanout_PublishAll_SuccessAndFailureAreIndependent(t *testing.T) {
	publishers := []Publisher{
		&mockPublisher{name: model.PlatformX, publishFunc: func(ctx context.Context, creds json.RawMessage, post Post) (*Output, error) {
			return &Output{ID: "tweet-1", URL: "https://x.com/i/web/status/tweet-1"}, nil
		}},
		&mockPublisher{name: model.PlatformLinkedIn, publishFunc: func(ctx context.Context, creds json.RawMessage, post Post) (*Output, error) {
			return nil, errors.New("linkedin api returned status 401")
		}},
	}

	metrics := &mockPublishMetrics{}
	f := NewFanout(publishers, &mockCredRepo{}, metrics, newTestLogger(), FanoutConfig{})

	results := f.PublishAll(context.Background(), "user-1", []model.Platform{model.PlatformX, model.PlatformLinkedIn}, Post{Text: "hi"})

	if len(results) != 2 {
		t.Fatalf("result count = %d, want 2", len(results))
	}

	x := results[model.PlatformX]
	if !x.OK || x.ID != "tweet-1" || x.URL == "" {
		t.Errorf("x result = %+v", x)
	}

	li := results[model.PlatformLinkedIn]
	if li.OK || li.Error == "" {
		t.Errorf("linkedin result = %+v, want failure with reason", li)
	}
	if li.Code != model.ErrCodePublishFailed {
		t.Errorf("linkedin code = %q, want %q", li.Code, model.ErrCodePublishFailed)
	}

	if metrics.outcome("x") != "success" {
		t.Errorf("x outcome = %q, want success", metrics.outcome("x"))
	}
	if metrics.outcome("linkedin") != "failure" {
		t.Errorf("linkedin outcome = %q, want failure", metrics.outcome("linkedin"))
	}
}

// 認可情報が未保存のプラットフォームは該当エントリのみ失敗する
func TestFanout_PublishAll_MissingCredentialIsPerPlatformFailure(t *testing.T) {
	creds := &mockCredRepo{
		findByUserAndPlatformFunc: func(ctx context.Context, userID string, platform model.Platform) (*model.SocialCredential, error) {
			if platform == model.PlatformLinkedIn {
				return nil, nil
			}
			return &model.SocialCredential{UserID: userID, Platform: platform, Data: json.RawMessage(`{}`)}, nil
		},
	}

	publishers := []Publisher{
		&mockPublisher{name: model.PlatformX},
		&mockPublisher{name: model.PlatformLinkedIn},
	}

	f := NewFanout(publishers, creds, nil, newTestLogger(), FanoutConfig{})

	results := f.PublishAll(context.Background(), "user-1", []model.Platform{model.PlatformX, model.PlatformLinkedIn}, Post{Text: "hi"})

	if !results[model.PlatformX].OK {
		t.Errorf("x should succeed: %+v", results[model.PlatformX])
	}
	li := results[model.PlatformLinkedIn]
	if li.OK {
		t.Errorf("linkedin should fail without credentials: %+v", li)
	}
	if li.Code != model.ErrCodePublishFailed {
		t.Errorf("linkedin code = %q, want %q", li.Code, model.ErrCodePublishFailed)
	}
}

func TestFanout_PublishAll_UnsupportedPlatform(t *testing.T) {
	f := NewFanout(nil, &mockCredRepo{}, nil, newTestLogger(), FanoutConfig{})

	results := f.PublishAll(context.Background(), "user-1", []model.Platform{model.PlatformYouTube}, Post{Text: "hi"})

	r := results[model.PlatformYouTube]
	if r.OK || r.Error == "" {
		t.Errorf("result = %+v, want failure", r)
	}
}

func TestFanout_PublishAll_DeduplicatesPlatforms(t *testing.T) {
	var mu sync.Mutex
	calls := 0

	publishers := []Publisher{
		&mockPublisher{name: model.PlatformX, publishFunc: func(ctx context.Context, creds json.RawMessage, post Post) (*Output, error) {
			mu.Lock()
			calls++
			mu.Unlock()
			return &Output{ID: "tweet-1"}, nil
		}},
	}

	f := NewFanout(publishers, &mockCredRepo{}, nil, newTestLogger(), FanoutConfig{})

	f.PublishAll(context.Background(), "user-1", []model.Platform{model.PlatformX, model.PlatformX, model.PlatformX}, Post{Text: "hi"})

	if calls != 1 {
		t.Errorf("publish calls = %d, want 1", calls)
	}
}

// プラットフォームごとのタイムアウトで遅い投稿が打ち切られ、
// ハード失敗とは別のUPSTREAM_TIMEOUTとして報告される
func TestFanout_PublishAll_PerPlatformTimeout(t *testing.T) {
	publishers := []Publisher{
		&mockPublisher{name: model.PlatformX, publishFunc: func(ctx context.Context, creds json.RawMessage, post Post) (*Output, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}},
	}

	metrics := &mockPublishMetrics{}
	f := NewFanout(publishers, &mockCredRepo{}, metrics, newTestLogger(), FanoutConfig{PerPlatformTimeout: 20 * time.Millisecond})

	start := time.Now()
	results := f.PublishAll(context.Background(), "user-1", []model.Platform{model.PlatformX}, Post{Text: "hi"})
	elapsed := time.Since(start)

	r := results[model.PlatformX]
	if r.OK {
		t.Error("slow publish should fail")
	}
	if r.Code != model.ErrCodeUpstreamTimeout {
		t.Errorf("code = %q, want %q", r.Code, model.ErrCodeUpstreamTimeout)
	}
	if metrics.outcome("x") != "timeout" {
		t.Errorf("x outcome = %q, want timeout", metrics.outcome("x"))
	}
	if elapsed > time.Second {
		t.Errorf("fanout took %v, timeout did not apply", elapsed)
	}
}

// 並行実行: 遅いプラットフォームがあっても全体は最遅の1件分で完了する
func TestFanout_PublishAll_RunsConcurrently(t *testing.T) {
	delay := 50 * time.Millisecond
	slow := func(ctx context.Context, creds json.RawMessage, post Post) (*Output, error) {
		time.Sleep(delay)
		return &Output{ID: "ok"}, nil
	}

	publishers := []Publisher{
		&mockPublisher{name: model.PlatformX, publishFunc: slow},
		&mockPublisher{name: model.PlatformLinkedIn, publishFunc: slow},
		&mockPublisher{name: model.PlatformInstagram, publishFunc: slow},
	}

	f := NewFanout(publishers, &mockCredRepo{}, nil, newTestLogger(), FanoutConfig{})

	start := time.Now()
	results := f.PublishAll(context.Background(), "user-1",
		[]model.Platform{model.PlatformX, model.PlatformLinkedIn, model.PlatformInstagram}, Post{Text: "hi"})
	elapsed := time.Since(start)

	if len(results) != 3 {
		t.Fatalf("result count = %d, want 3", len(results))
	}
	// 直列なら3倍かかる
	if elapsed > delay*2 {
		t.Errorf("fanout took %v, expected concurrent execution", elapsed)
	}
}

func TestUnconfiguredPublisher_AlwaysFails(t *testing.T) {
	p := NewUnconfiguredPublisher(model.PlatformTikTok)

	_, err := p.Publish(context.Background(), json.RawMessage(`{}`), Post{Text: "hi"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}
