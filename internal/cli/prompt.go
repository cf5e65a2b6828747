package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/portside-app/portside/internal/models"
	"github.com/portside-app/portside/internal/transfer"
	utilstrings "github.com/portside-app/portside/internal/util/strings"
)

// conflictChoice is one parsed answer to the overwrite prompt.
type conflictChoice struct {
	decision     transfer.Decision
	overwriteAll bool
}

// parseConflictChoice maps prompt input to a decision. Accepts the menu
// number or the first letter of the action.
func parseConflictChoice(input string) (conflictChoice, bool) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "1", "o", "overwrite":
		return conflictChoice{decision: transfer.DecisionOverwrite}, true
	case "2", "s", "skip":
		return conflictChoice{decision: transfer.DecisionSkip}, true
	case "3", "r", "rename":
		return conflictChoice{decision: transfer.DecisionRename}, true
	case "4", "a", "all":
		return conflictChoice{decision: transfer.DecisionOverwrite, overwriteAll: true}, true
	default:
		return conflictChoice{}, false
	}
}

// promptConflict asks what to do with an existing destination file and
// resolves the gate with the answer. Invoked from the gate's on-conflict
// hook, so it runs off the coordinator's dispatch goroutine.
func promptConflict(gate *transfer.ConflictGate, pc transfer.PendingConflict) {
	dest := pc.RemotePath
	if pc.Direction == models.DirectionDownload {
		dest = pc.LocalPath
	}

	fmt.Printf("\nFile '%s' (%s) already exists at '%s'.\n",
		pc.Filename, utilstrings.FormatBytes(pc.FileSize), dest)
	fmt.Println("What would you like to do?")
	fmt.Println("  1. Overwrite - Replace the existing file")
	fmt.Println("  2. Skip - Leave the existing file, do not transfer")
	fmt.Println("  3. Rename - Transfer under a timestamped name")
	fmt.Println("  4. All - Overwrite this and every later conflict in this batch")
	fmt.Print("Choose [1-4]: ")

	reader := bufio.NewReader(os.Stdin)
	for {
		input, err := reader.ReadString('\n')
		if err != nil {
			// Stdin gone (piped input exhausted): safest answer is skip.
			gate.Decide(transfer.DecisionSkip)
			return
		}

		choice, ok := parseConflictChoice(input)
		if !ok {
			fmt.Print("Invalid choice, please try again [1-4]: ")
			continue
		}
		if choice.overwriteAll {
			gate.DecideOverwriteAll()
		} else {
			gate.Decide(choice.decision)
		}
		return
	}
}
