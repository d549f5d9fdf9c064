package main

import (
	"context"
	"encoding/json"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"github.com/bihua-university/dreamcanvas/internal/syncx"
)

// Context 一条 websocket 消息的处理上下文
type Context struct {
	ctx    context.Context
	conn   *Connection
	server *server
	data   gjson.Result
}

func (c *Context) Get(p string) gjson.Result {
	return c.data.Get(p)
}

// Connection 一个 websocket 连接，所有写操作经由 send 队列串行执行
type Connection struct {
	ip   string
	send *syncx.Queue[[]byte]
	conn *websocket.Conn
	done chan struct{}
}

func newConnection(conn *websocket.Conn, ip string) *Connection {
	return &Connection{
		ip:   ip,
		send: syncx.NewQueue[[]byte](8),
		conn: conn,
		done: make(chan struct{}),
	}
}

func (c *Connection) Start() {
	go func() {
		defer close(c.done)
		for x := range c.send.C() {
			_ = c.conn.WriteMessage(websocket.TextMessage, x)
		}
	}()
}

// Close 停止接收新消息，等待已排队的消息写完
func (c *Connection) Close() {
	c.send.Close()
	<-c.done
}

func encJson(j any) []byte {
	b, _ := json.Marshal(j)
	return b
}

func (c *Connection) Send(j any) {
	c.SendRaw(encJson(j))
}

func (c *Connection) SendRaw(j []byte) {
	c.send.Push(j)
}
