// Package transport 定义 SMPP 客户端使用的字节流传输接口。
package transport

import (
	"context"
	"net"
)

// Handler 接收传输层事件。
//
// 同一个流的回调按发生顺序串行调用。OnClose 在流的生命周期内恰好调用一次，
// 对端正常关闭时先调用 OnEnd，异常断开时先调用 OnError。
type Handler interface {
	// OnData 收到数据，data 归调用方所有
	OnData(data []byte)
	// OnEnd 对端关闭了连接
	OnEnd()
	// OnClose 连接已释放
	OnClose()
	// OnError 传输层错误，随后会调用 OnClose
	OnError(err error)
}

// Stream 已建立的字节流。
type Stream interface {
	// Write 异步写出一个完整报文
	Write(frame []byte) error
	// Close 关闭连接，之后 Handler 会收到 OnClose
	Close() error
	RemoteAddr() net.Addr
}

// Dialer 建立到 SMSC 的连接。ctx 取消后放弃尚未完成的连接。
type Dialer interface {
	Dial(ctx context.Context, address string, h Handler) (Stream, error)
}
