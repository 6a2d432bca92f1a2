package limits

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateMessageText(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr error
	}{
		{name: "empty text", text: "", wantErr: ErrMessageEmpty},
		{name: "short text", text: "help needed", wantErr: nil},
		{name: "exact limit", text: strings.Repeat("a", MaxTextLength), wantErr: nil},
		{name: "over limit", text: strings.Repeat("a", MaxTextLength+1), wantErr: ErrMessageTooLarge},
		{name: "multi-byte runes counted as one", text: strings.Repeat("日", MaxTextLength), wantErr: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMessageText(tt.text)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateMessageText() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateMessageText() error = %v, want wrapping %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateNonce(t *testing.T) {
	if err := ValidateNonce(nil); !errors.Is(err, ErrMessageEmpty) {
		t.Errorf("ValidateNonce(nil) error = %v, want ErrMessageEmpty", err)
	}
	if err := ValidateNonce(make([]byte, MaxNonceLen)); err != nil {
		t.Errorf("ValidateNonce() at limit error = %v, want nil", err)
	}
	if err := ValidateNonce(make([]byte, MaxNonceLen+1)); !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("ValidateNonce() over limit error = %v, want ErrMessageTooLarge", err)
	}
}

func TestValidateTag(t *testing.T) {
	if err := ValidateTag(nil); !errors.Is(err, ErrMessageEmpty) {
		t.Errorf("ValidateTag(nil) error = %v, want ErrMessageEmpty", err)
	}
	if err := ValidateTag(make([]byte, MaxTagLen+1)); !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("ValidateTag() over limit error = %v, want ErrMessageTooLarge", err)
	}
}

func TestValidatePayloadAllowsEmpty(t *testing.T) {
	if err := ValidatePayload(nil); err != nil {
		t.Errorf("ValidatePayload(nil) error = %v, want nil", err)
	}
	if err := ValidatePayload(make([]byte, MaxPayloadLen+1)); !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("ValidatePayload() over limit error = %v, want ErrMessageTooLarge", err)
	}
}

func TestValidateEnvelopeBuffer(t *testing.T) {
	if err := ValidateEnvelopeBuffer(nil); !errors.Is(err, ErrMessageEmpty) {
		t.Errorf("ValidateEnvelopeBuffer(nil) error = %v, want ErrMessageEmpty", err)
	}
	if err := ValidateEnvelopeBuffer(make([]byte, MaxEnvelopeBuffer+1)); !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("ValidateEnvelopeBuffer() over limit error = %v, want ErrMessageTooLarge", err)
	}
}

func TestValidateMessageSize(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		maxSize int
		wantErr error
	}{
		{name: "empty", data: []byte{}, maxSize: 100, wantErr: ErrMessageEmpty},
		{name: "within limit", data: make([]byte, 50), maxSize: 100, wantErr: nil},
		{name: "at limit", data: make([]byte, 100), maxSize: 100, wantErr: nil},
		{name: "over limit", data: make([]byte, 101), maxSize: 100, wantErr: ErrMessageTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMessageSize(tt.data, tt.maxSize)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateMessageSize() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateMessageSize() error = %v, want wrapping %v", err, tt.wantErr)
			}
		})
	}
}
