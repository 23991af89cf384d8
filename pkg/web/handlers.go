package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-groove/internal/history"
	"github.com/teslashibe/go-groove/pkg/hub"
)

// handleStatus returns the current run snapshot.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	if s.status == nil {
		return c.JSON(Snapshot{State: "idle"})
	}
	return c.JSON(s.status())
}

// handleMoves returns the catalog's move names.
func (s *Server) handleMoves(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"moves": s.moves})
}

// handleRuns returns the most recent runs, newest first.
func (s *Server) handleRuns(c *fiber.Ctx) error {
	if s.history == nil {
		return c.JSON([]history.Run{})
	}
	runs, err := s.history.RecentRuns(c.QueryInt("limit", 20))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(runs)
}

// handleAnomalies returns the anomalies recorded for one run.
func (s *Server) handleAnomalies(c *fiber.Ctx) error {
	if s.history == nil {
		return c.JSON([]history.Anomaly{})
	}
	anomalies, err := s.history.Anomalies(c.Params("id"))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(anomalies)
}

// handleFeedWS registers a websocket watcher on the beat feed and
// blocks until it disconnects.
func (s *Server) handleFeedWS(c *websocket.Conn) {
	hub.NewClient(s.feed, c).Run()
}

// handleIndex serves a minimal page that tails the feed.
func (s *Server) handleIndex(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/html; charset=utf-8")
	return c.SendString(indexPage)
}

const indexPage = `<!DOCTYPE html>
<html>
<head>
<title>Groove Monitor</title>
<style>
body { font-family: monospace; background: #111; color: #ddd; margin: 2em; }
h1 { font-size: 1.2em; }
#status { color: #6cf; margin-bottom: 1em; }
#feed { white-space: pre; }
.beat { color: #fc6; }
.anomaly { color: #f66; }
</style>
</head>
<body>
<h1>Groove Monitor</h1>
<div id="status">connecting...</div>
<div id="feed"></div>
<script>
const feed = document.getElementById('feed');
const status = document.getElementById('status');
const ws = new WebSocket('ws://' + location.host + '/ws/feed');
ws.onopen = () => { status.textContent = 'feed connected'; };
ws.onclose = () => { status.textContent = 'feed closed'; };
ws.onmessage = (m) => {
  const ev = JSON.parse(m.data);
  const line = document.createElement('div');
  line.className = ev.kind;
  line.textContent = ev.at + ' ' + ev.kind + ' ' + JSON.stringify(ev.payload || '');
  feed.prepend(line);
  while (feed.childNodes.length > 200) feed.removeChild(feed.lastChild);
};
setInterval(async () => {
  const r = await fetch('/api/status');
  const st = await r.json();
  status.textContent = st.state + (st.bpm ? ' @ ' + st.bpm.toFixed(1) + ' bpm' : '');
}, 2000);
</script>
</body>
</html>
`
