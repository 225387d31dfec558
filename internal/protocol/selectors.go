package protocol

// The chat UI exposes the same controls under several alternative markups
// depending on version, locale, and account state. Each control therefore
// gets an ordered candidate list, tried in sequence until one matches.

var composerSelectors = []string{
	"div[contenteditable='true'][data-tab='10']",
	"div[contenteditable='true'][data-tab='6']",
	"div[contenteditable='true'][role='textbox']",
	"div[contenteditable='true']",
}

var attachSelectors = []string{
	"div[title='Attach']",
	"span[data-icon='attach-menu-plus']",
	"div[aria-label='Attach']",
	"div[data-testid='clip']",
}

var sendControlSelectors = []string{
	"span[data-icon='send']",
	"div[aria-label='Send']",
	"button[aria-label*='Send']",
	"button[data-testid='compose-btn-send']",
}

const fileInputSelector = "input[type='file']"
