package web

import (
	"bytes"
	"html/template"

	"github.com/jaminalder/tic-tac-toe-ai/internal/app"
	"github.com/jaminalder/tic-tac-toe-ai/internal/domain"
)

type templates struct {
	game  *template.Template
	board *template.Template
	index *template.Template
}

func loadTemplates() *templates {
	base := template.Must(template.New("base").Parse(`<!doctype html><html><head>
<meta charset="utf-8"/>
<title>Tic-Tac-Toe</title>
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
<script src="https://unpkg.com/htmx.org/dist/ext/sse.js"></script>
<style>
.row{display:flex}.cell{width:4em;height:4em;font-size:2em}
.win-x{background:#fdd}.win-o{background:#ddf}.alert{color:#b00}
</style>
</head><body>{{template "content" .}}</body></html>`))
	template.Must(base.New("board").Parse(boardTemplate))
	template.Must(base.New("settings").Parse(settingsTemplate))
	index := template.Must(template.Must(base.Clone()).New("content").Parse(`<h1>Tic-Tac-Toe</h1>
<form action="/game" method="post">{{template "settings" .}}<button>Start</button></form>`))
	game := template.Must(template.Must(base.Clone()).New("content").Parse(`<h1>Tic-Tac-Toe</h1>
<div hx-ext="sse" sse-connect="/game/{{.ID}}/events">
  <div sse-swap="board" hx-target="#board" hx-swap="outerHTML"></div>
  {{template "board" .Board}}
</div>
<form hx-post="/game/{{.ID}}/restart" hx-target="#board" hx-swap="outerHTML">{{template "settings" .Form}}<button id="restartBtn">Restart</button></form>`))
	board := template.Must(template.New("board_only").Parse(boardTemplate))
	return &templates{game: game, board: board, index: index}
}

func renderTemplate(t *template.Template, name string, data any) []byte {
	var buf bytes.Buffer
	if name == "" {
		_ = t.Execute(&buf, data)
	} else {
		_ = t.ExecuteTemplate(&buf, name, data)
	}
	return buf.Bytes()
}

const boardTemplate = `
<div id="board">
  <p id="status">{{.Status}}</p>
  {{if .Error}}
  <div class="alert">{{.Error}}</div>
  {{end}}
  {{range .Rows}}
  <div class="row">
    {{range .}}
    <form hx-post="/game/{{$.ID}}/play" hx-target="#board" hx-swap="outerHTML" method="post">
      <input type="hidden" name="cell" value="{{.Index}}">
      <button type="submit" class="cell {{.Class}}" data-index="{{.Index}}"{{if not .Playable}} disabled{{end}}>{{.Symbol}}</button>
    </form>
    {{end}}
  </div>
  {{end}}
  <p id="score">X: <span id="scoreX">{{.Score.X}}</span> O: <span id="scoreO">{{.Score.O}}</span> Draws: <span id="scoreD">{{.Score.Draws}}</span></p>
</div>
`

const settingsTemplate = `
<fieldset>
  <label><input type="radio" name="mode" value="pvc"{{if eq .Mode "pvc"}} checked{{end}}> vs computer</label>
  <label><input type="radio" name="mode" value="pvp"{{if eq .Mode "pvp"}} checked{{end}}> two players</label>
  <select name="difficulty" id="difficultyLevel">
    {{range .Difficulties}}<option value="{{.}}"{{if eq . $.Difficulty}} selected{{end}}>{{.}}</option>{{end}}
  </select>
  <select name="first" id="firstPlayer">
    <option value="X"{{if eq .First "X"}} selected{{end}}>X first</option>
    <option value="O"{{if eq .First "O"}} selected{{end}}>O first</option>
  </select>
  <select name="computer" id="computerPlayer">
    <option value="O"{{if eq .Computer "O"}} selected{{end}}>computer plays O</option>
    <option value="X"{{if eq .Computer "X"}} selected{{end}}>computer plays X</option>
  </select>
</fieldset>
`

type cellView struct {
	Index    int
	Symbol   string
	Class    string
	Playable bool
}

type boardView struct {
	ID     string
	Rows   [][]cellView
	Status string
	Error  string
	Score  app.Score
}

type settingsForm struct {
	Mode         string
	Difficulty   string
	First        string
	Computer     string
	Difficulties []string
}

func newSettingsForm(st app.Settings) settingsForm {
	return settingsForm{
		Mode:         st.Mode.String(),
		Difficulty:   st.Difficulty.String(),
		First:        st.FirstPlayer.String(),
		Computer:     st.Computer.String(),
		Difficulties: []string{"easy", "medium", "hard"},
	}
}

// newBoardView prepares a game for the board template. Cells on the winning
// line get the win-x or win-o class.
func newBoardView(gs app.GameState, errMsg string) boardView {
	v := boardView{ID: gs.ID, Status: statusText(gs), Error: errMsg, Score: gs.Score}
	winning := map[int]bool{}
	for _, idx := range gs.Game.Result.Cells() {
		winning[idx] = true
	}
	humanTurn := gs.Active && !gs.ComputerToMove()
	for r := 0; r < 3; r++ {
		row := make([]cellView, 3)
		for c := 0; c < 3; c++ {
			idx := r*3 + c
			cell := gs.Game.Board[idx]
			cv := cellView{Index: idx, Symbol: cell.String(), Playable: humanTurn && cell == domain.Empty}
			if winning[idx] {
				if gs.Game.Result.Winner == domain.X {
					cv.Class = "win-x"
				} else {
					cv.Class = "win-o"
				}
			}
			row[c] = cv
		}
		v.Rows = append(v.Rows, row)
	}
	return v
}

func statusText(gs app.GameState) string {
	switch r := gs.Game.Result; r.Outcome {
	case domain.Win:
		return r.Winner.String() + " Wins!"
	case domain.Draw:
		return "It's a Draw!"
	}
	if gs.ComputerToMove() {
		return "Computer is thinking..."
	}
	return gs.Game.Turn.String() + "'s turn"
}
