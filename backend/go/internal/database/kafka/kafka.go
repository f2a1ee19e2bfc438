package kafka

import (
	"TodayInHistory/backend/go/internal/config"
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// dialer 是 EnsureTopics 和 HealthCheck 使用的连接函数，测试中可以替换。
var dialer = func(ctx context.Context, broker string) (conn, error) {
	c, err := (&kafka.Dialer{Timeout: 10 * time.Second}).DialContext(ctx, "tcp", broker)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// conn 是管理连接中用到的方法子集。
type conn interface {
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	CreateTopics(topics ...kafka.TopicConfig) error
	Controller() (kafka.Broker, error)
	Close() error
}

// EnsureTopics 连接第一个 broker，并创建尚不存在的主题。
func EnsureTopics(ctx context.Context, cfg *config.KafkaConfig, topics ...string) error {
	if len(cfg.Brokers) == 0 {
		return fmt.Errorf("未配置 Kafka brokers")
	}

	c, err := dialer(ctx, cfg.Brokers[0])
	if err != nil {
		return fmt.Errorf("kafka 初始化连接失败: %w", err)
	}
	defer c.Close()

	partitions, err := c.ReadPartitions()
	if err != nil {
		return fmt.Errorf("无法读取 Kafka 分区信息: %w", err)
	}
	existing := make(map[string]struct{})
	for _, p := range partitions {
		existing[p.Topic] = struct{}{}
	}

	var toCreate []kafka.TopicConfig
	for _, topic := range topics {
		if _, ok := existing[topic]; !ok {
			toCreate = append(toCreate, kafka.TopicConfig{
				Topic:             topic,
				NumPartitions:     1,
				ReplicationFactor: 1,
			})
		}
	}
	if len(toCreate) == 0 {
		return nil
	}
	if err := c.CreateTopics(toCreate...); err != nil {
		return fmt.Errorf("自动创建 Kafka 主题失败: %w", err)
	}
	return nil
}

// NewWriter 创建写入指定主题的 writer。
// 写入是异步的：WriteMessages 不等待 broker 确认，发送错误交给 completion 回调。
func NewWriter(cfg *config.KafkaConfig, topic string, completion func(messages []kafka.Message, err error)) (*kafka.Writer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("未配置 Kafka brokers")
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
		Async:        true,
		Completion:   completion,
	}, nil
}

// HealthCheck 检查 Kafka 控制器是否可达，并返回其地址。
func HealthCheck(ctx context.Context, cfg *config.KafkaConfig) (string, error) {
	if len(cfg.Brokers) == 0 {
		return "", fmt.Errorf("未配置 Kafka brokers")
	}
	c, err := dialer(ctx, cfg.Brokers[0])
	if err != nil {
		return "", err
	}
	defer c.Close()

	controller, err := c.Controller()
	if err != nil {
		return "", err
	}
	return net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)), nil
}
