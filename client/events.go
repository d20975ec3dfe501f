package client

import (
	"github.com/aaronwong1989/smppc/codec/smpp"
)

// EventHandler 连接事件回调，全部在客户端事件循环中按报文顺序调用。
// 回调中不能阻塞等待 Future，否则事件循环将无法处理应答。
type EventHandler interface {
	// OnEnd 对端关闭了连接
	OnEnd(c *Client)

	// OnClose 连接已释放
	OnClose(c *Client)

	// OnError 连接级错误，如报文不合法、未匹配的应答和传输层错误
	OnError(c *Client, err error)

	// OnEnquireLink 收到链路检测，应答已生成，回调返回后发送
	OnEnquireLink(c *Client, pdu *smpp.EnquireLink)

	// OnDeliverSm 收到上行短信或状态报告，应答已生成，回调返回后发送
	OnDeliverSm(c *Client, pdu *smpp.DeliverSm)

	// OnUnbind 对端解除绑定，应答发送后连接关闭
	OnUnbind(c *Client, pdu *smpp.Unbind)
}

// BuiltinEventHandler 空实现，嵌入后只需实现关心的回调
type BuiltinEventHandler struct{}

func (*BuiltinEventHandler) OnEnd(_ *Client) {}

func (*BuiltinEventHandler) OnClose(_ *Client) {}

func (*BuiltinEventHandler) OnError(_ *Client, _ error) {}

func (*BuiltinEventHandler) OnEnquireLink(_ *Client, _ *smpp.EnquireLink) {}

func (*BuiltinEventHandler) OnDeliverSm(_ *Client, _ *smpp.DeliverSm) {}

func (*BuiltinEventHandler) OnUnbind(_ *Client, _ *smpp.Unbind) {}
