package agent

import "fmt"

// Nickname dictionary. Nicknames are deterministic given the manager's
// spawn counter, so a session's agents read as a stable cast.
var (
	nicknameAdjectives = []string{
		"amber", "brisk", "coral", "dusty", "eager", "fuzzy", "glad", "hasty",
		"ivory", "jolly", "keen", "lucid", "mellow", "noble", "olive", "plucky",
	}
	nicknameNouns = []string{
		"falcon", "badger", "otter", "heron", "lynx", "marmot", "osprey", "pika",
		"raven", "stoat", "tern", "vole", "wren", "ibex", "newt", "crane",
	}
)

// nickname derives the two-word nickname for the nth spawned agent.
func nickname(counter int) string {
	adj := nicknameAdjectives[counter%len(nicknameAdjectives)]
	noun := nicknameNouns[(counter/len(nicknameAdjectives))%len(nicknameNouns)]
	return fmt.Sprintf("%s-%s", adj, noun)
}
