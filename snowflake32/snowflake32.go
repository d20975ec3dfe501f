// Package snowflake32 生成模拟网关使用的 SMSC message_id
package snowflake32

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Snowflake 24小时内不会重复的雪花序号生成器
// 构成为: 0 | seconds 17 bit | datacenter 2 bit | worker 3 bit| sequence 9 bit
// 单节点TPS不超过512，超过则会阻塞到下一秒再返回序号
type Snowflake struct {
	sync.Mutex       // 锁
	seconds    int32 // 截止到午夜0点的秒数
	datacenter int32 // 数据中心id, 取值范围：0-3
	worker     int32 // 工作节点, 取值范围：0-7
	sequence   int32 // 序列号
	now        func() time.Time
}

const (
	sequenceMask    = int32(0x01ff)                              // 最大值为9个1
	datacenterBits  = uint(2)                                    // 数据中心id所占位数
	workerBits      = uint(3)                                    // 机器id所占位数
	sequenceBits    = uint(9)                                    // 序列所占的位数
	workerShift     = sequenceBits                               // 机器id左移位数
	datacenterShift = sequenceBits + workerBits                  // 数据中心id左移位数
	timestampShift  = sequenceBits + workerBits + datacenterBits // 时间戳左移位数

	MaxDatacenter = int32(1)<<datacenterBits - 1
	MaxWorker     = int32(1)<<workerBits - 1
)

var ErrOutOfRange = errors.New("snowflake32: datacenter or worker out of range")

// NewSnowflake d for datacenter-id, w for worker-id
func NewSnowflake(d int32, w int32) (*Snowflake, error) {
	if d < 0 || d > MaxDatacenter || w < 0 || w > MaxWorker {
		return nil, errors.Wrapf(ErrOutOfRange, "datacenter=%d, worker=%d", d, w)
	}
	return &Snowflake{datacenter: d, worker: w, seconds: -1, now: time.Now}, nil
}

func (s *Snowflake) NextVal() int32 {
	s.Lock()
	defer s.Unlock()
	return s.nextVal()
}

func (s *Snowflake) nextVal() int32 {
	now := passedSeconds(s.now())
	if s.seconds == now {
		// 同一秒内递增序列号
		s.sequence = (s.sequence + 1) & sequenceMask
		if s.sequence == 0 {
			// 序列号用尽，等待下一秒
			for now == s.seconds {
				time.Sleep(time.Millisecond)
				now = passedSeconds(s.now())
			}
		}
	} else {
		s.sequence = 0
	}
	s.seconds = now
	return (s.seconds << timestampShift) | (s.datacenter << datacenterShift) | (s.worker << workerShift) | s.sequence
}

// MessageId 返回 submit_sm_resp 使用的 message_id，格式为 MMDD + 8位十六进制序号
func (s *Snowflake) MessageId() string {
	s.Lock()
	defer s.Unlock()
	v := s.nextVal()
	return fmt.Sprintf("%s%08X", s.now().Format("0102"), uint32(v))
}

func (s *Snowflake) String() string {
	return fmt.Sprintf("%d:%d:%d:%d", s.seconds, s.datacenter, s.worker, s.sequence)
}

func passedSeconds(t time.Time) int32 {
	return int32(t.Hour()*3600 + t.Minute()*60 + t.Second())
}
