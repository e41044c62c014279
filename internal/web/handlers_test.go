package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jaminalder/tic-tac-toe-ai/internal/app"
	"github.com/jaminalder/tic-tac-toe-ai/internal/comms"
	"github.com/jaminalder/tic-tac-toe-ai/internal/domain"
)

func newTestServer(t *testing.T) (*app.Service, http.Handler) {
	t.Helper()
	s := app.NewService(app.WithComputerDelay(time.Hour))
	h := NewServer(s)
	return s, h
}

func pvpGame(t *testing.T, svc *app.Service) *app.GameState {
	t.Helper()
	st := app.DefaultSettings()
	st.Mode = app.PvP
	gs, err := svc.CreateGame(&st)
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	return gs
}

func postForm(h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func postJSON(h http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestIndexPage(t *testing.T) {
	_, h := newTestServer(t)
	req := httptest.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "<form") || !strings.Contains(body, "action=\"/game\"") {
		t.Fatalf("index should contain create form; got body: %q", body)
	}
	if !strings.Contains(body, `id="difficultyLevel"`) {
		t.Fatalf("index should offer difficulty levels; got body: %q", body)
	}
}

func TestCreateRedirectsToGame(t *testing.T) {
	svc, h := newTestServer(t)
	rr := postForm(h, "/game", url.Values{"mode": {"pvp"}, "difficulty": {"easy"}})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rr.Code)
	}
	loc := rr.Result().Header.Get("Location")
	if !strings.HasPrefix(loc, "/game/") {
		t.Fatalf("expected redirect to /game/{id}, got %q", loc)
	}
	gs, ok := svc.Get(strings.TrimPrefix(loc, "/game/"))
	if !ok {
		t.Fatalf("created game not found")
	}
	if gs.Settings.Mode != app.PvP || gs.Settings.Difficulty.String() != "easy" {
		t.Fatalf("settings not applied: %+v", gs.Settings)
	}
}

func TestCreateRejectsBadSettings(t *testing.T) {
	_, h := newTestServer(t)
	rr := postForm(h, "/game", url.Values{"difficulty": {"impossible"}})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestGamePageHasBoardAndEvents(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame(nil)

	req := httptest.NewRequest("GET", "/game/"+url.PathEscape(gs.ID), nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "hx-ext=\"sse\"") || !strings.Contains(body, "/game/"+gs.ID+"/events") {
		t.Fatalf("expected SSE wiring in page; got body: %q", body)
	}
	if strings.Count(body, "data-index=") != 9 {
		t.Fatalf("expected 9 cells; got body: %q", body)
	}
	if !strings.Contains(body, "X&#39;s turn") {
		t.Fatalf("expected X to move first; got body: %q", body)
	}
}

func TestGamePageUnknownGame(t *testing.T) {
	_, h := newTestServer(t)
	req := httptest.NewRequest("GET", "/game/missing", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestPlayEndpointUpdatesStateAndReturnsFragment(t *testing.T) {
	svc, h := newTestServer(t)
	gs := pvpGame(t, svc)

	rr := postForm(h, "/game/"+gs.ID+"/play", url.Values{"r": {"0"}, "c": {"0"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "id=\"board\"") {
		t.Fatalf("expected board fragment, got %q", rr.Body.String())
	}
	latest, _ := svc.Get(gs.ID)
	if latest.Game.Moves != 1 || latest.Game.Board[0] != domain.X {
		t.Fatalf("expected move applied, board=%s", latest.Game.Board)
	}

	postForm(h, "/game/"+gs.ID+"/play", url.Values{"cell": {"4"}})
	latest, _ = svc.Get(gs.ID)
	if latest.Game.Board[4] != domain.O {
		t.Fatalf("expected O at 4, board=%s", latest.Game.Board)
	}
}

func TestPlayRejectedMoveShowsError(t *testing.T) {
	svc, h := newTestServer(t)
	gs := pvpGame(t, svc)
	postForm(h, "/game/"+gs.ID+"/play", url.Values{"cell": {"4"}})

	rr := postForm(h, "/game/"+gs.ID+"/play", url.Values{"cell": {"4"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Cell is occupied") {
		t.Fatalf("expected occupied error, got %q", rr.Body.String())
	}
	rr = postForm(h, "/game/"+gs.ID+"/play", url.Values{"cell": {"9"}})
	if !strings.Contains(rr.Body.String(), "Out of bounds") {
		t.Fatalf("expected bounds error, got %q", rr.Body.String())
	}
	latest, _ := svc.Get(gs.ID)
	if latest.Game.Moves != 1 {
		t.Fatalf("rejected moves changed state, moves=%d", latest.Game.Moves)
	}
}

func TestPlayHumanBlockedWhileComputerThinks(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame(nil)
	postForm(h, "/game/"+gs.ID+"/play", url.Values{"cell": {"0"}})

	rr := postForm(h, "/game/"+gs.ID+"/play", url.Values{"cell": {"1"}})
	body := rr.Body.String()
	if !strings.Contains(body, "Not your turn") || !strings.Contains(body, "Computer is thinking...") {
		t.Fatalf("expected pending computer move, got %q", body)
	}
}

func TestPlayUnknownGame(t *testing.T) {
	_, h := newTestServer(t)
	rr := postForm(h, "/game/missing/play", url.Values{"cell": {"0"}})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestRestartEndpoint(t *testing.T) {
	svc, h := newTestServer(t)
	gs := pvpGame(t, svc)
	for _, c := range []string{"0", "3", "1", "4", "2"} {
		postForm(h, "/game/"+gs.ID+"/play", url.Values{"cell": {c}})
	}
	over, _ := svc.Get(gs.ID)
	if over.Active || over.Score.X != 1 {
		t.Fatalf("expected X win recorded, got active=%v score=%+v", over.Active, over.Score)
	}

	rr := postForm(h, "/game/"+gs.ID+"/restart", url.Values{"first": {"O"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	latest, _ := svc.Get(gs.ID)
	if !latest.Active || latest.Game.Moves != 0 || latest.Game.Turn != domain.O {
		t.Fatalf("expected fresh game with O first, got %+v", latest.Game)
	}
	if latest.Score.X != 1 {
		t.Fatalf("score should survive restart, got %+v", latest.Score)
	}
}

func TestEventsEndpointSSEHeaders(t *testing.T) {
	_, h := newTestServer(t)
	reqCreate := httptest.NewRequest("POST", "/game", nil)
	rrCreate := httptest.NewRecorder()
	h.ServeHTTP(rrCreate, reqCreate)
	loc := rrCreate.Result().Header.Get("Location")
	if loc == "" {
		t.Fatalf("missing redirect location")
	}
	req := httptest.NewRequest("GET", loc+"/events", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	ct := rr.Result().Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("expected text/event-stream, got %q", ct)
	}
}

func TestEventsUnknownGame(t *testing.T) {
	_, h := newTestServer(t)
	req := httptest.NewRequest("GET", "/game/missing/events", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestEventsStreamBoardUpdates(t *testing.T) {
	svc, h := newTestServer(t)
	gs := pvpGame(t, svc)
	srv := httptest.NewServer(h)
	defer srv.Close()

	req, _ := http.NewRequest("GET", srv.URL+"/game/"+gs.ID+"/events", nil)
	req.Header.Set("Accept", "text/event-stream")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	defer resp.Body.Close()

	deadline := time.Now().Add(2 * time.Second)
	for svc.Subscribers(gs.ID) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("stream never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, err := svc.Play(gs.ID, 4); err != nil {
		t.Fatalf("Play: %v", err)
	}

	buf := make([]byte, 4096)
	var got strings.Builder
	for !strings.Contains(got.String(), "\n\n") {
		n, err := resp.Body.Read(buf)
		got.Write(buf[:n])
		if err != nil {
			break
		}
	}
	out := got.String()
	if !strings.HasPrefix(out, "event: board\n") || !strings.Contains(out, `id="board"`) {
		t.Fatalf("unexpected event %q", out)
	}
	if strings.Count(strings.TrimSuffix(out, "\n\n"), "\n") != 1 {
		t.Fatalf("fragment should fit on one data line: %q", out)
	}
}

func TestAPIState(t *testing.T) {
	svc, h := newTestServer(t)
	gs := pvpGame(t, svc)
	_, _ = svc.Play(gs.ID, 4)

	req := httptest.NewRequest("GET", "/api/game/"+gs.ID, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var st StateBroadcast
	if err := json.Unmarshal(rr.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.ID != gs.ID || st.Board[4] != "X" || st.Turn != "O" || st.Outcome != "in_progress" || st.Mode != "pvp" || st.LastMove != 4 {
		t.Fatalf("unexpected state %+v", st)
	}

	req = httptest.NewRequest("GET", "/api/game/missing", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestAPIHint(t *testing.T) {
	svc, h := newTestServer(t)
	gs := pvpGame(t, svc)
	for _, c := range []int{0, 3, 1} {
		_, _ = svc.Play(gs.ID, c)
	}
	req := httptest.NewRequest("GET", "/api/game/"+gs.ID+"/hint", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var hint HintResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &hint); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if hint.Cell != 2 {
		t.Fatalf("O must block at 2, hint=%d", hint.Cell)
	}
}

func TestAPIEvaluate(t *testing.T) {
	_, h := newTestServer(t)
	cases := []struct {
		board   string
		outcome string
		winner  string
		line    []int
	}{
		{`["","","","","","","","",""]`, "in_progress", "", nil},
		{`["X","X","X","O","O","","","",""]`, "win", "X", []int{0, 1, 2}},
		{`["O","X","X","","O","X","","","O"]`, "win", "O", []int{0, 4, 8}},
		{`["X","O","X","X","O","O","O","X","X"]`, "draw", "", nil},
	}
	for _, tc := range cases {
		rr := postJSON(h, "/api/evaluate", `{"board":`+tc.board+`}`)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", tc.board, rr.Code)
		}
		var got evaluateResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.Outcome != tc.outcome || got.Winner != tc.winner || len(got.Line) != len(tc.line) {
			t.Fatalf("%s: got %+v", tc.board, got)
		}
		for i := range tc.line {
			if got.Line[i] != tc.line[i] {
				t.Fatalf("%s: line %v", tc.board, got.Line)
			}
		}
	}
}

func TestAPIEvaluateRejectsBadBoards(t *testing.T) {
	_, h := newTestServer(t)
	for _, body := range []string{`{"board":["X"]}`, `{"board":["Z","","","","","","","",""]}`, `not json`} {
		if rr := postJSON(h, "/api/evaluate", body); rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, rr.Code)
		}
	}
}

func TestAPIMove(t *testing.T) {
	_, h := newTestServer(t)
	cases := []struct {
		body string
		want int
	}{
		{`{"board":["","","","","","","","",""],"difficulty":"hard","computer":"O"}`, 0},
		{`{"board":["X","","","","","","","",""],"difficulty":"hard","computer":"O"}`, 4},
		{`{"board":["X","X","","O","O","","","",""],"difficulty":"medium","computer":"O"}`, 5},
		{`{"board":["X","X","","O","","","","",""],"difficulty":"medium","computer":"O"}`, 2},
		{`{"board":["O","O","","X","X","","X","",""]}`, 2},
	}
	for _, tc := range cases {
		rr := postJSON(h, "/api/move", tc.body)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", tc.body, rr.Code)
		}
		var got moveResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.Cell != tc.want {
			t.Fatalf("%s: want %d, got %d", tc.body, tc.want, got.Cell)
		}
	}
}

func TestAPIMoveConflicts(t *testing.T) {
	_, h := newTestServer(t)
	full := `{"board":["X","O","X","X","O","O","O","X","X"],"difficulty":"easy"}`
	if rr := postJSON(h, "/api/move", full); rr.Code != http.StatusConflict {
		t.Fatalf("full board: expected 409, got %d", rr.Code)
	}
	won := `{"board":["X","X","X","O","O","","","",""]}`
	if rr := postJSON(h, "/api/move", won); rr.Code != http.StatusConflict {
		t.Fatalf("won board: expected 409, got %d", rr.Code)
	}
	bad := `{"board":["","","","","","","","",""],"difficulty":"expert"}`
	if rr := postJSON(h, "/api/move", bad); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad difficulty: expected 400, got %d", rr.Code)
	}
}

func dialGame(t *testing.T, srv *httptest.Server, id string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/game/" + id + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

// readType reads frames until one of the given type arrives.
func readType(t *testing.T, conn *websocket.Conn, typ string, out interface{}) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var m comms.Message
		if err := conn.ReadJSON(&m); err != nil {
			t.Fatalf("waiting for %s: %v", typ, err)
		}
		if m.Type != typ {
			continue
		}
		if err := comms.Decode(m, out); err != nil {
			t.Fatalf("decode %s: %v", typ, err)
		}
		return
	}
}

func TestWebsocketPlay(t *testing.T) {
	svc, h := newTestServer(t)
	gs := pvpGame(t, svc)
	srv := httptest.NewServer(h)
	defer srv.Close()
	conn := dialGame(t, srv, gs.ID)
	defer conn.Close()

	var st StateBroadcast
	readType(t, conn, "StateBroadcast", &st)
	if st.ID != gs.ID || st.Turn != "X" {
		t.Fatalf("unexpected initial state %+v", st)
	}

	cell := 4
	if err := conn.WriteJSON(comms.ToMessage(MakeMoveRequest{Cell: &cell})); err != nil {
		t.Fatalf("write: %v", err)
	}
	readType(t, conn, "StateBroadcast", &st)
	if st.Board[4] != "X" || st.Turn != "O" {
		t.Fatalf("move not broadcast: %+v", st)
	}

	if err := conn.WriteJSON(comms.ToMessage(MakeMoveRequest{Cell: &cell})); err != nil {
		t.Fatalf("write: %v", err)
	}
	var rejected comms.ErrorResponse
	readType(t, conn, "ErrorResponse", &rejected)
	if rejected.Reason != "Cell is occupied" {
		t.Fatalf("unexpected rejection %q", rejected.Reason)
	}

	if err := conn.WriteJSON(comms.ToMessage(HintRequest{})); err != nil {
		t.Fatalf("write: %v", err)
	}
	var hint HintResponse
	readType(t, conn, "HintResponse", &hint)
	if hint.Cell < 0 || hint.Cell > 8 || hint.Cell == 4 {
		t.Fatalf("unexpected hint %d", hint.Cell)
	}
}

func TestWebsocketRestartAndConfigure(t *testing.T) {
	svc, h := newTestServer(t)
	gs := pvpGame(t, svc)
	_, _ = svc.Play(gs.ID, 0)
	srv := httptest.NewServer(h)
	defer srv.Close()
	conn := dialGame(t, srv, gs.ID)
	defer conn.Close()

	var st StateBroadcast
	readType(t, conn, "StateBroadcast", &st)

	if err := conn.WriteJSON(comms.ToMessage(ConfigureRequest{Difficulty: "medium"})); err != nil {
		t.Fatalf("write: %v", err)
	}
	readType(t, conn, "StateBroadcast", &st)
	if st.Difficulty != "medium" || st.Board[0] != "X" {
		t.Fatalf("configure should keep the board: %+v", st)
	}

	if err := conn.WriteJSON(comms.ToMessage(RestartRequest{FirstPlayer: "O"})); err != nil {
		t.Fatalf("write: %v", err)
	}
	readType(t, conn, "StateBroadcast", &st)
	if st.Board[0] != "" || st.Turn != "O" || st.FirstPlayer != "O" {
		t.Fatalf("restart not applied: %+v", st)
	}

	if err := conn.WriteJSON(comms.ToMessage(ConfigureRequest{Mode: "chess"})); err != nil {
		t.Fatalf("write: %v", err)
	}
	var rejected comms.ErrorResponse
	readType(t, conn, "ErrorResponse", &rejected)
	if rejected.Reason != "Invalid settings" {
		t.Fatalf("unexpected rejection %q", rejected.Reason)
	}
}

func TestWebsocketResetScoreAndRowColumnMoves(t *testing.T) {
	svc, h := newTestServer(t)
	gs := pvpGame(t, svc)
	for _, c := range []int{0, 3, 1, 4, 2} {
		_, _ = svc.Play(gs.ID, c)
	}
	srv := httptest.NewServer(h)
	defer srv.Close()
	conn := dialGame(t, srv, gs.ID)
	defer conn.Close()

	var st StateBroadcast
	readType(t, conn, "StateBroadcast", &st)
	if st.Score.X != 1 || st.Winner != "X" {
		t.Fatalf("expected finished game with X scored, got %+v", st)
	}

	if err := conn.WriteJSON(comms.ToMessage(ResetScoreRequest{})); err != nil {
		t.Fatalf("write: %v", err)
	}
	readType(t, conn, "StateBroadcast", &st)
	if st.Score != (ScoreView{}) {
		t.Fatalf("score not reset: %+v", st.Score)
	}

	if err := conn.WriteJSON(comms.ToMessage(RestartRequest{})); err != nil {
		t.Fatalf("write: %v", err)
	}
	readType(t, conn, "StateBroadcast", &st)
	row, col := 2, 1
	if err := conn.WriteJSON(comms.ToMessage(MakeMoveRequest{Row: &row, Col: &col})); err != nil {
		t.Fatalf("write: %v", err)
	}
	readType(t, conn, "StateBroadcast", &st)
	if st.Board[7] != "X" || st.LastMove != 7 {
		t.Fatalf("row/column move not applied: %+v", st)
	}
}

func TestWebsocketMalformedRequest(t *testing.T) {
	svc, h := newTestServer(t)
	gs := pvpGame(t, svc)
	srv := httptest.NewServer(h)
	defer srv.Close()
	conn := dialGame(t, srv, gs.ID)
	defer conn.Close()

	var st StateBroadcast
	readType(t, conn, "StateBroadcast", &st)

	bad := comms.Message{Type: "MakeMoveRequest", Contents: map[string]interface{}{"cell": []int{1, 2}}}
	if err := conn.WriteJSON(bad); err != nil {
		t.Fatalf("write: %v", err)
	}
	var rejected comms.ErrorResponse
	readType(t, conn, "ErrorResponse", &rejected)
	if rejected.Reason != "Malformed request" {
		t.Fatalf("unexpected rejection %q", rejected.Reason)
	}

	if err := conn.WriteJSON(comms.Message{Type: "FlipBoardRequest"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	readType(t, conn, "ErrorResponse", &rejected)
	if rejected.Reason != "Unknown request FlipBoardRequest" {
		t.Fatalf("unexpected rejection %q", rejected.Reason)
	}
	if latest, _ := svc.Get(gs.ID); latest.Game.Moves != 0 {
		t.Fatalf("rejected requests changed the game: %+v", latest.Game)
	}
}

func TestWebsocketUnknownGame(t *testing.T) {
	_, h := newTestServer(t)
	srv := httptest.NewServer(h)
	defer srv.Close()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/game/missing/ws"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 response, got %+v", resp)
	}
}

func TestCheckOrigin(t *testing.T) {
	allow := checkOrigin([]string{"https://play.example"})
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://play.example")
	if !allow(req) {
		t.Fatalf("listed origin rejected")
	}
	req.Header.Set("Origin", "https://evil.example")
	if allow(req) {
		t.Fatalf("unlisted origin accepted")
	}
	if !checkOrigin(nil)(req) {
		t.Fatalf("empty allowlist should accept any origin")
	}
}
