package client

import "github.com/okian/slumber/internal/domain/quality"

// Panel texts.
const (
	IdleIcon     = "💤"
	IdleTitle    = "Prediction Awaited..."
	IdleHint     = "Enter your daily habits and click predict to see your result."
	LoadingText  = "Analyzing sleep patterns..."
	ResultHeader = "Predicted Quality"
	TipsHeader   = "💡 Tips for Improvement:"
	errorPrefix  = "Error: "
)

// View is what the result panel shows for a State.
type View struct {
	Phase   Phase
	Icon    string
	Class   string
	Title   string
	Message string
	Tips    []string
}

type badge struct {
	icon  string
	class string
}

var badges = map[quality.Quality]badge{
	quality.Good:    {icon: "🌟", class: "result-good"},
	quality.Average: {icon: "😐", class: "result-average"},
	quality.Poor:    {icon: "⚠️", class: "result-poor"},
}

// Render maps a submission state onto the result panel.
func Render(s State) View {
	switch s.Phase {
	case Loading:
		return View{Phase: Loading, Message: LoadingText}
	case Success:
		b := badges[s.Result.Quality]
		tips := make([]string, len(s.Result.Tips))
		copy(tips, s.Result.Tips)
		return View{
			Phase:   Success,
			Icon:    b.icon,
			Class:   b.class,
			Title:   s.Result.Quality.String(),
			Message: ResultHeader,
			Tips:    tips,
		}
	case Failed:
		return View{Phase: Failed, Message: errorPrefix + Message(s.Err)}
	}
	return View{Phase: Idle, Icon: IdleIcon, Title: IdleTitle, Message: IdleHint}
}
