package codec

// IHead 报文头
type IHead interface {
	Encode() []byte
	Decode([]byte) error
	String() string
}

// Codec 报文编解码，Decode 的 frame 为去掉报文头后的消息体
type Codec interface {
	Encode() []byte
	Decode(header IHead, frame []byte) error
	String() string
}

// Sequence32 32位序号生成器
type Sequence32 interface {
	NextVal() int32
}
