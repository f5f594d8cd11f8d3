package data

import (
	"context"
	"encoding/json"

	"settlement-service/internal/biz"

	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/go-kratos/kratos/v2/log"
)

// eventPublisher 通过 RocketMQ 发布流水线完成事件
type eventPublisher struct {
	data *Data
	log  *log.Helper
}

// NewEventPublisher 创建事件发布器（返回 biz.EventPublisher 接口）
func NewEventPublisher(data *Data, logger log.Logger) biz.EventPublisher {
	return &eventPublisher{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// PublishPipelineCompleted 未启用 MQ 时直接返回
func (p *eventPublisher) PublishPipelineCompleted(ctx context.Context, event *biz.PipelineEvent) error {
	if p.data.mq == nil {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := primitive.NewMessage(p.data.topic, body)
	msg.WithKeys([]string{event.RunID})
	msg.WithTag(event.Pipeline)

	res, err := p.data.mq.SendSync(ctx, msg)
	if err != nil {
		p.log.Errorf("send pipeline event failed: pipeline=%s, run_id=%s, error=%v", event.Pipeline, event.RunID, err)
		return err
	}
	p.log.Infof("pipeline event sent: pipeline=%s, run_id=%s, msg_id=%s", event.Pipeline, event.RunID, res.MsgID)
	return nil
}
