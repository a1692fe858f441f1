package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/cynicast/pkg/provider/stt"
	sttmock "github.com/MrWong99/cynicast/pkg/provider/stt/mock"
)

func TestSTTFallback_Failover(t *testing.T) {
	t.Parallel()
	primary := &sttmock.Provider{TranscribeErr: errors.New("quota exceeded")}
	secondary := &sttmock.Provider{Text: "hola"}

	fb := NewSTTFallback(primary, "whisper", quietConfig(3))
	fb.AddFallback("backup", secondary)

	req := stt.Request{Name: "a.mp3", Data: []byte{1}}
	tr, err := fb.Transcribe(context.Background(), req)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if tr.Text != "hola" {
		t.Errorf("text = %q, want hola", tr.Text)
	}
	if len(primary.Calls()) != 1 || primary.Calls()[0].Req.Name != "a.mp3" {
		t.Errorf("primary calls = %+v", primary.Calls())
	}
}

func TestSTTFallback_AllFail(t *testing.T) {
	t.Parallel()
	fb := NewSTTFallback(&sttmock.Provider{TranscribeErr: errTest}, "whisper", quietConfig(3))
	if _, err := fb.Transcribe(context.Background(), stt.Request{}); !errors.Is(err, ErrAllFailed) {
		t.Errorf("err = %v, want ErrAllFailed", err)
	}
}
