package publish

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/creatorflow/internal/model"
)

func instagramCreds(t *testing.T) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(model.InstagramCredentials{
		AccessToken:       "ig-token",
		BusinessAccountID: "17890000000000000",
	})
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

// コンテナ作成→公開の2段階ワークフローを検証する
func TestInstagramPublisher_Publish_TwoStepWorkflow(t *testing.T) {
	var paths []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)

		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		if payload["access_token"] != "ig-token" {
			t.Errorf("access_token = %q, want ig-token", payload["access_token"])
		}

		switch len(paths) {
		case 1:
			if payload["image_url"] != "https://img.example/cover.png" {
				t.Errorf("image_url = %q", payload["image_url"])
			}
			if payload["caption"] != "check this out" {
				t.Errorf("caption = %q", payload["caption"])
			}
			json.NewEncoder(w).Encode(map[string]string{"id": "container-1"})
		case 2:
			if payload["creation_id"] != "container-1" {
				t.Errorf("creation_id = %q, want container-1", payload["creation_id"])
			}
			json.NewEncoder(w).Encode(map[string]string{"id": "media-99"})
		}
	}))
	defer server.Close()

	p := NewInstagramPublisher(server.Client(), newTestLogger())
	p.baseURL = server.URL

	output, err := p.Publish(context.Background(), instagramCreds(t), Post{
		Text:     "check this out",
		ImageURL: "https://img.example/cover.png",
	})
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	if output.ID != "media-99" {
		t.Errorf("ID = %q, want media-99", output.ID)
	}
	if len(paths) != 2 {
		t.Fatalf("request count = %d, want 2", len(paths))
	}
	if paths[0] != "/17890000000000000/media" || paths[1] != "/17890000000000000/media_publish" {
		t.Errorf("paths = %v", paths)
	}
}

func TestInstagramPublisher_Publish_RequiresImageURL(t *testing.T) {
	p := NewInstagramPublisher(http.DefaultClient, newTestLogger())

	if _, err := p.Publish(context.Background(), instagramCreds(t), Post{Text: "no image"}); err == nil {
		t.Fatal("expected error when image URL is missing")
	}
}

// コンテナ作成が失敗したら公開は呼ばれない
func TestInstagramPublisher_Publish_ContainerFailureAborts(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"invalid image"}}`))
	}))
	defer server.Close()

	p := NewInstagramPublisher(server.Client(), newTestLogger())
	p.baseURL = server.URL

	_, err := p.Publish(context.Background(), instagramCreds(t), Post{Text: "x", ImageURL: "https://img.example/a.png"})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("request count = %d, want 1", calls)
	}
}
