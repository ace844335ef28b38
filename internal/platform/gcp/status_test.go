package gcp

import (
	"context"
	"errors"
	"testing"

	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yungbote/minutebridge-backend/internal/domain"
)

func TestCapabilityErrMapsStatusCodes(t *testing.T) {
	cases := []struct {
		err  error
		want error
	}{
		{status.Error(codes.Unauthenticated, "no creds"), domain.ErrCredentialMissing},
		{status.Error(codes.PermissionDenied, "denied"), domain.ErrCredentialMissing},
		{status.Error(codes.Unavailable, "down"), domain.ErrCapabilityUnavailable},
		{status.Error(codes.Internal, "boom"), domain.ErrCapabilityUnavailable},
		{status.Error(codes.InvalidArgument, "Inline audio exceeds duration limit"), domain.ErrCapabilityPayloadTooLarge},
		{status.Error(codes.InvalidArgument, "Document is password protected"), domain.ErrDocumentEncrypted},
		{status.Error(codes.InvalidArgument, "bad header"), domain.ErrDocumentCorrupt},
	}
	for _, tc := range cases {
		if got := capabilityErr("op", tc.err, domain.ErrDocumentCorrupt); !errors.Is(got, tc.want) {
			t.Fatalf("err=%v got=%v want=%v", tc.err, got, tc.want)
		}
	}
	if got := capabilityErr("op", context.DeadlineExceeded, domain.ErrDocumentCorrupt); got != context.DeadlineExceeded {
		t.Fatalf("deadline got=%v", got)
	}
	if got := capabilityErr("op", status.Error(codes.Canceled, "x"), domain.ErrDocumentCorrupt); !errors.Is(got, context.Canceled) {
		t.Fatalf("canceled got=%v", got)
	}
}

func TestRetryTransientRetriesOnlyTransientCodes(t *testing.T) {
	calls := 0
	_, err := retryTransient(context.Background(), 3, func() (int, error) {
		calls++
		return 0, status.Error(codes.InvalidArgument, "nope")
	})
	if err == nil || calls != 1 {
		t.Fatalf("calls got=%d want=1 err=%v", calls, err)
	}

	calls = 0
	out, err := retryTransient(context.Background(), 3, func() (int, error) {
		calls++
		if calls < 2 {
			return 0, status.Error(codes.Unavailable, "retry me")
		}
		return 42, nil
	})
	if err != nil || out != 42 || calls != 2 {
		t.Fatalf("got out=%d calls=%d err=%v", out, calls, err)
	}
}

func TestRetryTransientStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := retryTransient(ctx, 5, func() (int, error) {
		calls++
		cancel()
		return 0, status.Error(codes.Unavailable, "down")
	})
	if !errors.Is(err, context.Canceled) || calls != 1 {
		t.Fatalf("calls=%d err=%v", calls, err)
	}
}

func TestLanguageCode(t *testing.T) {
	cases := map[string]string{"": "it-IT", "en": "en-US", "pt-BR": "pt-BR", "IT": "it-IT", "nl": "nl"}
	for in, want := range cases {
		if got := languageCode(in, "it-IT"); got != want {
			t.Fatalf("languageCode(%q) got=%q want=%q", in, got, want)
		}
	}
}

func TestInferSpeechEncoding(t *testing.T) {
	cases := []struct {
		mime, name string
		want       speechpb.RecognitionConfig_AudioEncoding
	}{
		{"audio/mpeg", "a.bin", speechpb.RecognitionConfig_MP3},
		{"", "a.wav", speechpb.RecognitionConfig_LINEAR16},
		{"audio/ogg", "", speechpb.RecognitionConfig_OGG_OPUS},
		{"audio/webm", "", speechpb.RecognitionConfig_WEBM_OPUS},
		{"audio/mp4", "a.m4a", speechpb.RecognitionConfig_ENCODING_UNSPECIFIED},
	}
	for _, tc := range cases {
		if got := inferSpeechEncoding(tc.mime, tc.name); got != tc.want {
			t.Fatalf("inferSpeechEncoding(%q,%q) got=%v want=%v", tc.mime, tc.name, got, tc.want)
		}
	}
}

func TestJoinSpeechResultsSkipsBlankAlternatives(t *testing.T) {
	resp := &speechpb.LongRunningRecognizeResponse{Results: []*speechpb.SpeechRecognitionResult{
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: " Buongiorno a tutti. "}}},
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "  "}}},
		{},
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "Iniziamo."}}},
	}}
	if got, want := joinSpeechResults(resp), "Buongiorno a tutti.\nIniziamo."; got != want {
		t.Fatalf("got=%q want=%q", got, want)
	}
}

func TestProcessorName(t *testing.T) {
	if got := processorName("p", "eu", "abc", ""); got != "projects/p/locations/eu/processors/abc" {
		t.Fatalf("got=%q", got)
	}
	if got := processorName("p", "eu", "abc", "v2"); got != "projects/p/locations/eu/processors/abc/processorVersions/v2" {
		t.Fatalf("got=%q", got)
	}
	if got := processorName("", "eu", "abc", ""); got != "" {
		t.Fatalf("got=%q want empty", got)
	}
}
