package model_test

import (
	"testing"

	"github.com/m-mizutani/banter/pkg/model"
	"github.com/m-mizutani/gt"
)

func TestMessageValidate(t *testing.T) {
	author := model.AuthorOf(model.DefaultUser())

	tests := []struct {
		name    string
		msg     *model.Message
		wantErr bool
	}{
		{
			name: "user message with author",
			msg:  &model.Message{Type: model.MessageTypeUser, Text: "hi", Author: author},
		},
		{
			name:    "user message without author",
			msg:     &model.Message{Type: model.MessageTypeUser, Text: "hi"},
			wantErr: true,
		},
		{
			name: "system message",
			msg:  &model.Message{Type: model.MessageTypeSystem, Text: "Tina joined"},
		},
		{
			name:    "system message with author",
			msg:     &model.Message{Type: model.MessageTypeSystem, Text: "joined", Author: author},
			wantErr: true,
		},
		{
			name:    "unknown type",
			msg:     &model.Message{Type: "banner", Text: "hi"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.wantErr {
				gt.Error(t, err)
			} else {
				gt.NoError(t, err)
			}
		})
	}
}

func TestPersonaDescribe(t *testing.T) {
	p := model.Persona{Tone: "sarcastic", Expertise: "databases"}
	gt.V(t, p.Describe()).Equal("Tone: sarcastic, Expertise: databases.")

	p.AdditionalInstructions = "Always answer with a question."
	gt.V(t, p.Describe()).Equal("Tone: sarcastic, Expertise: databases. Always answer with a question.")
}

func TestRosterAdd(t *testing.T) {
	roster := model.NewRoster()

	gt.NoError(t, roster.Add(model.DefaultUser()))
	gt.NoError(t, roster.Add(&model.Assistant{ID: "ai-1", Name: "Mike"}))

	// Same ID twice is a conflict
	gt.Error(t, roster.Add(&model.Assistant{ID: "ai-1", Name: "Impostor"}))

	gt.A(t, roster.Assistants()).Length(1)
	gt.A(t, roster.Participants()).Length(2)
}
