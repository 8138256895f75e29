package protocol

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestClientMessageEnvelopesSetExactlyOneField(t *testing.T) {
	cases := []struct {
		name string
		msg  ClientMessage
		want string
	}{
		{
			name: "text turn",
			msg: ClientMessage{ClientContent: &ClientContent{
				Turns:        []Content{TextContent("hello")},
				TurnComplete: true,
			}},
			want: `{"clientContent":{"turns":[{"role":"user","parts":[{"text":"hello"}]}],"turnComplete":true}}`,
		},
		{
			name: "audio chunk",
			msg: ClientMessage{RealtimeInput: &RealtimeInput{
				Audio: &Blob{Data: "QUJD", MIMEType: AudioInMIMEType},
			}},
			want: `{"realtimeInput":{"audio":{"data":"QUJD","mimeType":"audio/pcm;rate=16000"}}}`,
		},
		{
			name: "video frame",
			msg: ClientMessage{RealtimeInput: &RealtimeInput{
				Video: &Blob{Data: "ZnJhbWU=", MIMEType: FrameMIMEType},
			}},
			want: `{"realtimeInput":{"video":{"data":"ZnJhbWU=","mimeType":"image/jpeg"}}}`,
		},
		{
			name: "activity start",
			msg:  ClientMessage{RealtimeInput: &RealtimeInput{ActivityStart: &ActivityStart{}}},
			want: `{"realtimeInput":{"activityStart":{}}}`,
		},
		{
			name: "activity end",
			msg:  ClientMessage{RealtimeInput: &RealtimeInput{ActivityEnd: &ActivityEnd{}}},
			want: `{"realtimeInput":{"activityEnd":{}}}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(tc.msg)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(data) != tc.want {
				t.Fatalf("got %s want %s", data, tc.want)
			}
		})
	}
}

func TestSetupCarriesVoiceAndCompression(t *testing.T) {
	setup := Setup{
		Model: DefaultModel,
		GenerationConfig: &GenerationConfig{
			ResponseModalities: []string{ModalityAudio},
			SpeechConfig: &SpeechConfig{
				VoiceConfig: &VoiceConfig{
					PrebuiltVoiceConfig: &PrebuiltVoiceConfig{VoiceName: "Leda"},
				},
			},
		},
		SystemInstruction:   &Content{Parts: []Part{{Text: "persona"}}},
		RealtimeInputConfig: &RealtimeInputConfig{TurnCoverage: TurnCoverageAllInput},
		ContextWindowCompression: &ContextWindowCompression{
			TriggerTokens: "25600",
			SlidingWindow: &SlidingWindow{TargetTokens: "12800"},
		},
	}

	data, err := json.Marshal(ClientMessage{Setup: &setup})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, fragment := range []string{
		`"model":"` + DefaultModel + `"`,
		`"responseModalities":["AUDIO"]`,
		`"voiceName":"Leda"`,
		`"triggerTokens":"25600"`,
		`"targetTokens":"12800"`,
		`"turnCoverage":"TURN_INCLUDES_ALL_INPUT"`,
	} {
		if !strings.Contains(string(data), fragment) {
			t.Fatalf("setup JSON missing %s: %s", fragment, data)
		}
	}
}

func TestDecodeServerMessage(t *testing.T) {
	raw := `{"serverContent":{"turnComplete":true,"modelTurn":{"parts":[` +
		`{"text":"hi"},` +
		`{"inlineData":{"data":"UENN","mimeType":"audio/pcm;rate=24000"}},` +
		`{"fileData":{"fileUri":"https://example.com/clip"}}]}}}`

	msg, err := DecodeServerMessage([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	sc := msg.ServerContent
	if sc == nil || !sc.TurnComplete {
		t.Fatalf("expected turnComplete server content, got %+v", msg)
	}
	parts := sc.ModelTurn.Parts
	if len(parts) != 3 {
		t.Fatalf("parts=%d want 3", len(parts))
	}
	if parts[0].Text != "hi" {
		t.Fatalf("text part=%q", parts[0].Text)
	}
	if parts[1].InlineData == nil || parts[1].InlineData.MIMEType != "audio/pcm;rate=24000" {
		t.Fatalf("inline part=%+v", parts[1])
	}
	if parts[2].FileData == nil || parts[2].FileData.FileURI != "https://example.com/clip" {
		t.Fatalf("file part=%+v", parts[2])
	}
}

func TestDecodeServerMessageRejectsMalformedJSON(t *testing.T) {
	_, err := DecodeServerMessage([]byte(`{"serverContent":`))
	if err == nil {
		t.Fatalf("expected decode error")
	}
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected *DecodeError, got %T", err)
	}
	if decodeErr.Code != "bad_json" {
		t.Fatalf("code=%q", decodeErr.Code)
	}
}

func TestDecodeServerMessageTolerantOfUnknownFields(t *testing.T) {
	msg, err := DecodeServerMessage([]byte(`{"usageMetadata":{"totalTokens":12},"serverContent":{}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.ServerContent == nil {
		t.Fatalf("expected empty server content")
	}
}
