package service

import (
	"context"
	"net/http"
	"time"

	v1 "moodmap-go/api/moodmap/v1"
	"moodmap-go/internal/biz"
	"moodmap-go/pkg/geo"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// StreamConfig websocket 连接参数。
type StreamConfig struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	MaxMessageSize int64
}

func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     (60 * time.Second * 9) / 10,
		MaxMessageSize: 64 * 1024,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// streamCommand 客户端上行消息。
type streamCommand struct {
	Type      string   `json:"type"` // fix / error / mood / lookup / refresh
	Lat       float64  `json:"lat"`
	Lng       float64  `json:"lng"`
	Accuracy  *float64 `json:"accuracy"`
	Timestamp int64    `json:"timestamp"`
	Code      string   `json:"code"`
	Mood      string   `json:"mood"`
	Query     string   `json:"query"`
}

// streamMessage 服务端下行消息。
type streamMessage struct {
	Type    string             `json:"type"` // snapshot / results / status / error
	Session *v1.SessionReply   `json:"session,omitempty"`
	Results *v1.ResultSet      `json:"results,omitempty"`
	Status  *v1.LocationStatus `json:"status,omitempty"`
	Reason  string             `json:"reason,omitempty"`
	Message string             `json:"message,omitempty"`
}

type streamClient struct {
	svc  *MoodMapService
	conn *websocket.Conn
	sess *biz.Session
	cfg  StreamConfig
	send chan streamMessage
	cmds chan streamCommand // mood / lookup / refresh，按到达顺序执行
}

func newStreamClient(svc *MoodMapService, conn *websocket.Conn, sess *biz.Session) *streamClient {
	return &streamClient{
		svc:  svc,
		conn: conn,
		sess: sess,
		cfg:  DefaultStreamConfig(),
		send: make(chan streamMessage, 16),
		cmds: make(chan streamCommand, 16),
	}
}

// ServeStream GET /v1/stream?session_id=：设备上报定位，服务端推送状态与推荐结果。
func (s *MoodMapService) ServeStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.URL.Query().Get("session_id")
	sess, err := s.sessions.Get(id)
	if err != nil {
		if sess, err = s.sessions.Create(ctx, id); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithContext(ctx).Warnf("failed to upgrade to websocket: %v", err)
		return
	}
	c := newStreamClient(s, conn, sess)
	events, unsubscribe := sess.Subscribe()

	wctx, stop := context.WithCancel(context.Background())
	go func() {
		select {
		case <-sess.Done():
			stop()
		case <-wctx.Done():
		}
	}()

	c.send <- streamMessage{Type: "snapshot", Session: mapSession(sess.Snapshot())}
	done := make(chan struct{})
	go c.writePump(events, done)
	go c.runCommands(wctx)
	c.readPump()
	stop()
	close(done)
	unsubscribe()
	s.log.Infof("stream closed for session %s", sess.ID())
}

func (c *streamClient) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.svc.log.Warnf("websocket error: %v", err)
			}
			return
		}
		var cmd streamCommand
		if err := json.Unmarshal(message, &cmd); err != nil {
			c.reply(streamMessage{Type: "error", Reason: biz.BadRequest, Message: "invalid message"})
			continue
		}
		c.handle(cmd)
	}
}

// handle 定位上报交给设备源异步处理；心情、手动定位与刷新进入命令队列，由单个 worker 顺序执行。
// 定位上报不排队：排队中的刷新可能正在等待下一次定位。
func (c *streamClient) handle(cmd streamCommand) {
	c.sess.Touch()
	switch cmd.Type {
	case "fix":
		ts := time.Now()
		if cmd.Timestamp > 0 {
			ts = time.UnixMilli(cmd.Timestamp)
		}
		reading, err := geo.NewLocationReading(cmd.Lat, cmd.Lng, cmd.Accuracy, ts)
		if err != nil {
			c.fail(biz.ErrInvalidCoordinate)
			return
		}
		c.sess.PushFix(reading)
	case "error":
		c.sess.ReportFailure(cmd.Code)
	case "mood", "lookup", "refresh":
		select {
		case c.cmds <- cmd:
		default:
			c.reply(streamMessage{Type: "error", Reason: biz.BadRequest, Message: "too many pending commands"})
		}
	default:
		c.reply(streamMessage{Type: "error", Reason: biz.BadRequest, Message: "unknown message type " + cmd.Type})
	}
}

// runCommands 每个连接一个，ctx 在连接断开或会话关闭时取消。
func (c *streamClient) runCommands(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-c.cmds:
			c.exec(ctx, cmd)
		}
	}
}

func (c *streamClient) exec(ctx context.Context, cmd streamCommand) {
	var err error
	switch cmd.Type {
	case "mood":
		_, err = c.sess.SetMood(ctx, cmd.Mood)
	case "lookup":
		_, err = c.sess.ResolveManual(ctx, cmd.Query)
	case "refresh":
		_, err = c.sess.Refresh(ctx)
	}
	if err == nil || ctx.Err() != nil || errors.Is(err, biz.ErrCycleSuperseded) {
		return
	}
	c.fail(err)
}

func (c *streamClient) fail(err error) {
	e := errors.FromError(err)
	c.reply(streamMessage{Type: "error", Reason: e.Reason, Message: e.Message})
}

func (c *streamClient) reply(m streamMessage) {
	select {
	case c.send <- m:
	default:
	}
}

func (c *streamClient) writePump(events <-chan biz.Event, done <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		var msg streamMessage
		select {
		case <-done:
			return
		case m := <-c.send:
			msg = m
		case e, ok := <-events:
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			msg = toStreamMessage(e)
		case <-ticker.C:
			// 连接存活期间会话不过期
			c.sess.Touch()
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			continue
		}

		b, err := json.Marshal(msg)
		if err != nil {
			c.svc.log.Errorf("encode stream message: %v", err)
			continue
		}
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
			return
		}
	}
}

func toStreamMessage(e biz.Event) streamMessage {
	switch e.Type {
	case biz.EventResults:
		return streamMessage{Type: string(e.Type), Results: mapResultSet(e.Results)}
	default:
		m := streamMessage{Type: string(e.Type)}
		if e.Status != nil {
			m.Status = mapLocation(*e.Status)
		}
		return m
	}
}
