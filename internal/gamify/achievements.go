package gamify

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Facts is everything an achievement rule may look at. Counts are always
// derived fresh from the snippet collection right before evaluation — they
// are never carried forward as mutable state that could drift from the
// store.
type Facts struct {
	Snippets           int  // approved snippets authored by the user
	Uses               int  // cumulative uses across those snippets
	Languages          int  // distinct languages among them
	FavoritesByOthers  int  // favorites entries pointing at them, library-wide
	IsAdmin            bool // member of the administrator set
	Approved           int  // moderation: approvals performed
	Rejected           int  // moderation: rejections performed
	DetailedRejections int  // rejections with a substantial reason
	HourModerations    int  // moderations inside the rolling hour
}

func (f Facts) env() map[string]any {
	return map[string]any{
		"snippets":            f.Snippets,
		"uses":                f.Uses,
		"languages":           f.Languages,
		"favorites_by_others": f.FavoritesByOthers,
		"is_admin":            f.IsAdmin,
		"approved":            f.Approved,
		"rejected":            f.Rejected,
		"detailed_rejections": f.DetailedRejections,
		"hour_moderations":    f.HourModerations,
	}
}

// Achievement is one entry of the rule table. The Rule field is an
// expr-lang boolean expression over the Facts environment — adding an
// achievement means adding a row here, never touching call sites.
type Achievement struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Emoji       string `json:"emoji"`
	Description string `json:"description"`
	Rule        string `json:"-"`

	program *vm.Program
}

// Achievements is the full rule table, evaluated centrally by the engine.
// Grants are append-only: a rule turning false later never revokes the code.
var Achievements = []Achievement{
	{
		Code:        "first_snippet",
		Name:        "First Snippet",
		Emoji:       "🎉",
		Description: "Added a first snippet",
		Rule:        "snippets >= 1",
	},
	{
		Code:        "popular_author",
		Name:        "Popular Author",
		Emoji:       "⭐",
		Description: "100+ snippet uses",
		Rule:        "uses >= 100",
	},
	{
		Code:        "code_master",
		Name:        "Code Master",
		Emoji:       "🏆",
		Description: "500+ snippet uses",
		Rule:        "uses >= 500",
	},
	{
		Code:        "multilang",
		Name:        "Polyglot",
		Emoji:       "🌍",
		Description: "Snippets in every supported language",
		Rule:        "snippets > 0 && languages >= 4",
	},
	{
		Code:        "helpful",
		Name:        "Helper",
		Emoji:       "🤝",
		Description: "10+ snippets in other users' favorites",
		Rule:        "favorites_by_others >= 10",
	},
	{
		Code:        "active",
		Name:        "Activist",
		Emoji:       "🔥",
		Description: "25+ snippets",
		Rule:        "snippets >= 25",
	},
	{
		Code:        "gatekeeper",
		Name:        "Gatekeeper",
		Emoji:       "🛡️",
		Description: "Approved 50+ submissions",
		Rule:        "is_admin && approved >= 50",
	},
	{
		Code:        "thorough_reviewer",
		Name:        "Thorough Reviewer",
		Emoji:       "🔍",
		Description: "10+ rejections with a detailed reason",
		Rule:        "is_admin && detailed_rejections >= 10",
	},
	{
		Code:        "rapid_moderator",
		Name:        "Rapid Moderator",
		Emoji:       "⚡",
		Description: "10+ moderations within one hour",
		Rule:        "is_admin && hour_moderations >= 10",
	},
}

// Rules compile once at startup; a malformed rule is a programming error
// and fails the process immediately rather than silently skipping grants.
func init() {
	for i := range Achievements {
		a := &Achievements[i]
		program, err := expr.Compile(a.Rule, expr.Env(Facts{}.env()), expr.AsBool())
		if err != nil {
			panic(fmt.Sprintf("gamify: compiling rule %s: %v", a.Code, err))
		}
		a.program = program
	}
}

// granted runs the achievement's compiled rule against the facts.
func (a *Achievement) granted(f Facts) (bool, error) {
	out, err := expr.Run(a.program, f.env())
	if err != nil {
		return false, fmt.Errorf("gamify: evaluating rule %s: %w", a.Code, err)
	}
	return out.(bool), nil
}

// ByCode returns the achievement with the given code, for rendering grants.
func ByCode(code string) (Achievement, bool) {
	for _, a := range Achievements {
		if a.Code == code {
			return a, true
		}
	}
	return Achievement{}, false
}
