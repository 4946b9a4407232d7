package render

// gallows stages indexed by fail count; stage 9 is the last one a round survives
var gallows = [10][]string{
	{"", "", "", "", "", "", "", ""},
	{"", "", "|", "|", "|", "|", "|", "|"},
	{" ____", "/", "|", "|", "|", "|", "|", "|"},
	{" ____", "/   |", "|", "|", "|", "|", "|", "|"},
	{" ____", "/   |", "|  ( )", "|", "|", "|", "|", "|"},
	{" ____", "/   |", "|  ( )", "|   |", "|   |", "|   |", "|", "|"},
	{" ____", "/   |", "|  ( )", "|  /|", "| / |", "|   |", "|", "|"},
	{" ____", "/   |", "|  ( )", `|  /|\`, `| / | \`, "|   |", "|", "|"},
	{" ____", "/   |", "|  ( )", `|  /|\`, `| / | \`, "|   |", "|  /", "| /"},
	{" ____", "/   |", "|  ( )", `|  /|\`, `| / | \`, "|   |", `|  / \`, `| /   \`},
}

// MaxStage is the highest figure index
const MaxStage = len(gallows) - 1
