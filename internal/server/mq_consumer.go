package server

import (
	"context"
	"encoding/json"

	"settlement-service/internal/biz"
	"settlement-service/internal/conf"
	"settlement-service/internal/metrics"

	"github.com/apache/rocketmq-client-go/v2"
	"github.com/apache/rocketmq-client-go/v2/consumer"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/go-kratos/kratos/v2/log"
)

// MQConsumerServer 订阅流水线完成事件，刷新查询服务的状态缓存
type MQConsumerServer struct {
	c           rocketmq.PushConsumer
	statusCache *biz.StatusCache
	topic       string
	log         *log.Helper
	metrics     *metrics.SettlementMetrics
	enabled     bool
}

// NewMQConsumerServer 创建 RocketMQ 消费者，未启用时 Start/Stop 为空操作
func NewMQConsumerServer(c *conf.Bootstrap, statusCache *biz.StatusCache, logger log.Logger) *MQConsumerServer {
	s := &MQConsumerServer{
		statusCache: statusCache,
		log:         log.NewHelper(logger),
		metrics:     metrics.GetMetrics(),
	}
	if c.Data == nil || c.Data.Rocketmq == nil || !c.Data.Rocketmq.Enabled {
		return s
	}
	mq := c.Data.Rocketmq
	group := mq.ConsumerGroup
	if group == "" {
		group = mq.GroupName + "-query"
	}

	r, err := rocketmq.NewPushConsumer(
		consumer.WithNsResolver(primitive.NewPassthroughResolver(mq.NameServers)),
		consumer.WithGroupName(group),
		consumer.WithConsumerModel(consumer.BroadCasting),
		consumer.WithRetry(mq.RetryTimes),
	)
	if err != nil {
		s.log.Errorf("init consumer error: %v", err)
		return s
	}
	s.c = r
	s.topic = mq.Topic
	s.enabled = true
	return s
}

// Start 订阅并启动消费者
func (s *MQConsumerServer) Start(ctx context.Context) error {
	if !s.enabled || s.c == nil {
		s.log.Infof("MQConsumerServer is disabled, skipping startup")
		return nil
	}

	s.log.Infof("Starting MQConsumerServer, topic: %s", s.topic)
	if err := s.c.Subscribe(s.topic, consumer.MessageSelector{}, s.handler); err != nil {
		// 事件只用于刷新缓存，MQ 不可用时不影响查询服务启动
		s.log.Errorf("Failed to subscribe to topic %s: %v", s.topic, err)
		return nil
	}
	if err := s.c.Start(); err != nil {
		s.log.Errorf("Failed to start RocketMQ consumer: %v", err)
	}
	return nil
}

// Stop 停止消费者
func (s *MQConsumerServer) Stop(ctx context.Context) error {
	if !s.enabled || s.c == nil {
		return nil
	}
	s.log.Info("Stopping MQConsumerServer")
	return s.c.Shutdown()
}

func (s *MQConsumerServer) handler(ctx context.Context, msgs ...*primitive.MessageExt) (consumer.ConsumeResult, error) {
	refreshed := false
	for _, msg := range msgs {
		var event biz.PipelineEvent
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			s.log.Errorf("Unmarshal message failed: %v, body: %s", err, string(msg.Body))
			continue
		}
		s.log.Infof("pipeline %s completed: run_id=%s, steps=%v", event.Pipeline, event.RunID, event.Steps)
		if s.metrics != nil && !event.FinishedAt.IsZero() {
			s.metrics.PipelineLastSuccess.WithLabelValues(event.Pipeline).Set(float64(event.FinishedAt.Unix()))
		}
		refreshed = true
	}

	if refreshed {
		s.statusCache.Invalidate()
	}
	return consumer.ConsumeSuccess, nil
}
