package validator

import (
	"strings"
	"testing"

	"unistay/pkg/logger"
	"unistay/pkg/model"
)

func TestValidate(t *testing.T) {
	v := NewMessageValidator(logger.Discard())

	tests := []struct {
		name    string
		input   model.MessageCreate
		wantErr bool
	}{
		{name: "new thread", input: model.MessageCreate{PropertyID: "64b7f0c2a1b2c3d4e5f60718", Body: "Is it free in May?"}},
		{name: "reply", input: model.MessageCreate{ThreadID: "a-b-c", Body: "Yes"}},
		{name: "no target", input: model.MessageCreate{Body: "hello"}, wantErr: true},
		{name: "empty body", input: model.MessageCreate{ThreadID: "a-b-c"}, wantErr: true},
		{name: "body too long", input: model.MessageCreate{ThreadID: "a-b-c", Body: strings.Repeat("x", 2001)}, wantErr: true},
		{name: "bad recipient", input: model.MessageCreate{PropertyID: "64b7f0c2a1b2c3d4e5f60718", RecipientID: "bob", Body: "hi"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
