// Package export turns stored conversations and estimations into documents
// people read: plain-text transcripts, a spreadsheet of everything, and a
// printable estimation report.
package export

import (
	"strings"

	"github.com/socratic-tutor/backend/internal/domain/conversation"
	"github.com/socratic-tutor/backend/internal/prompt"
)

// EmptyDialogue stands in for the turns of a conversation that has none.
const EmptyDialogue = "Диалог пока пуст."

const (
	promptHeading   = "Промпт:"
	dialogueHeading = "Диалог:"
)

// Transcript renders c as text: the frozen prompt (when set) followed by the
// turns in the same "<Label>: <content>" form the tutor prompt uses. The
// output depends only on c.
func Transcript(c *conversation.Conversation) string {
	var blocks []string
	if p := strings.TrimSpace(c.PromptTemplate); p != "" {
		blocks = append(blocks, promptHeading+"\n"+p)
	}

	turns := prompt.DialogueTurns(c.Messages)
	if turns == "" {
		turns = EmptyDialogue
	}
	blocks = append(blocks, dialogueHeading+"\n"+turns)

	return strings.TrimSpace(strings.Join(blocks, "\n\n"))
}
