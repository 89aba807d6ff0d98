package domain

// Selectable labels offered by the forms. Persona and tone stay free-form
// everywhere else.
var (
	ChatPersonas      = []string{"Helpful Assistant", "Sarcastic Friend", "Domain Expert", "Creative Writer", "Code Wizard"}
	ChatTones         = []string{"Neutral", "Formal", "Casual", "Humorous", "Enthusiastic"}
	GeneratorPersonas = []string{"Helpful Assistant", "Expert Developer", "Creative Writer", "Marketing Guru"}
	GeneratorTones    = []string{"Neutral", "Formal", "Casual", "Humorous"}
	CodeTargets       = []string{"HTML", "React", "Vue"}
)

// Code builder tabs.
const (
	TabFullApp      = "full-app"
	TabQuickSnippet = "quick-snippet"
)
