/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-01-05 00:00:00
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-01-10 10:22:15
 * @FilePath: \go-imcore\core\core.go
 * @Description: Core 核心结构和类型定义
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */

package core

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kamalyes/go-cachex"
	"github.com/kamalyes/go-toolbox/pkg/errorx"
	"github.com/kamalyes/go-toolbox/pkg/idgen"
	"github.com/kamalyes/go-toolbox/pkg/mathx"
	"github.com/kamalyes/go-toolbox/pkg/osx"

	"github.com/kamalyes/go-imcore/middleware"
	"github.com/kamalyes/go-imcore/models"
	"github.com/kamalyes/go-imcore/repository"
)

// ============================================================================
// 类型别名 - 从 models repository middleware 包导入
// ============================================================================

type (
	Session                = models.Session
	CoreConfig             = models.CoreConfig
	Message                = models.Message
	MessageType            = models.MessageType
	MessageStatus          = models.MessageStatus
	ChannelKind            = models.ChannelKind
	PresenceStatus         = models.PresenceStatus
	SessionPolicy          = models.SessionPolicy
	DisconnectReason       = models.DisconnectReason
	IDGenerator            = models.IDGenerator
	CoreStats              = models.CoreStats
	ErrorType              = errorx.ErrorType
	IMLogger               = middleware.IMLogger
	RateLimiter            = middleware.RateLimiter
	TokenValidator         = middleware.TokenValidator
	MessageRepository      = repository.MessageRepository
	UnreadRepository       = repository.UnreadRepository
	OnlineStatusRepository = repository.OnlineStatusRepository
)

// 常量别名
const (
	ChannelKindMessages = models.ChannelKindMessages
	ChannelKindPresence = models.ChannelKindPresence
	ChannelKindUnread   = models.ChannelKindUnread

	PresenceStatusOnline  = models.PresenceStatusOnline
	PresenceStatusOffline = models.PresenceStatusOffline

	SessionPolicyMulti  = models.SessionPolicyMulti
	SessionPolicyReject = models.SessionPolicyReject

	DisconnectReasonReadError        = models.DisconnectReasonReadError
	DisconnectReasonWriteError       = models.DisconnectReasonWriteError
	DisconnectReasonHeartbeatTimeout = models.DisconnectReasonHeartbeatTimeout
	DisconnectReasonClientRequest    = models.DisconnectReasonClientRequest
	DisconnectReasonServerShutdown   = models.DisconnectReasonServerShutdown
	DisconnectReasonUnknown          = models.DisconnectReasonUnknown

	// ErrorType 常量
	ErrTypeAuthFailed         = models.ErrTypeAuthFailed
	ErrTypeAlreadyConnected   = models.ErrTypeAlreadyConnected
	ErrTypeHeartbeatTimeout   = models.ErrTypeHeartbeatTimeout
	ErrTypeSessionNotFound    = models.ErrTypeSessionNotFound
	ErrTypeUnknownRecipient   = models.ErrTypeUnknownRecipient
	ErrTypeInvalidMessageType = models.ErrTypeInvalidMessageType
	ErrTypeInvalidChannelKind = models.ErrTypeInvalidChannelKind
	ErrTypeAlreadySubscribed  = models.ErrTypeAlreadySubscribed
	ErrTypeSendBufferFull     = models.ErrTypeSendBufferFull
	ErrTypeMessageNotFound    = models.ErrTypeMessageNotFound
)

// 函数与错误别名
var (
	NewSession = models.NewSession

	ErrAuthFailed        = models.ErrAuthFailed
	ErrSessionClosed     = models.ErrSessionClosed
	ErrCoreNotRunning    = models.ErrCoreNotRunning
	ErrShutdownTimeout   = models.ErrShutdownTimeout
	ErrOperationTimeout  = models.ErrOperationTimeout
	ErrRateLimitExceeded = models.ErrRateLimitExceeded
	ErrEmptyMessageBody  = models.ErrEmptyMessageBody
	ErrSendBufferFull    = models.ErrSendBufferFull
	ErrRepositoryNotSet  = models.ErrRepositoryNotSet
	ErrPersistFailed     = models.ErrPersistFailed

	IsAuthError             = models.IsAuthError
	IsAlreadyConnectedError = models.IsAlreadyConnectedError
	IsUnknownRecipientError = models.IsUnknownRecipientError
	IsRateLimitError        = models.IsRateLimitError
)

// ============================================================================
// Core 独有类型定义
// ============================================================================

// ContactsProvider 返回需要感知某用户在线状态变化的联系人集合
type ContactsProvider interface {
	ContactsOf(ctx context.Context, userID string) ([]string, error)
}

// ContactsProviderFunc 函数适配器
type ContactsProviderFunc func(ctx context.Context, userID string) ([]string, error)

// ContactsOf 实现 ContactsProvider
func (f ContactsProviderFunc) ContactsOf(ctx context.Context, userID string) ([]string, error) {
	return f(ctx, userID)
}

// RecipientDirectory 校验收件人是否为系统已知用户
type RecipientDirectory interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

// RecipientDirectoryFunc 函数适配器
type RecipientDirectoryFunc func(ctx context.Context, userID string) (bool, error)

// Exists 实现 RecipientDirectory
func (f RecipientDirectoryFunc) Exists(ctx context.Context, userID string) (bool, error) {
	return f(ctx, userID)
}

// 回调函数类型
type (
	// SessionConnectCallback 会话建立回调
	SessionConnectCallback func(ctx context.Context, session *Session) error
	// SessionDisconnectCallback 会话断开回调
	SessionDisconnectCallback func(ctx context.Context, session *Session, reason DisconnectReason) error
	// HeartbeatTimeoutCallback 心跳超时回调
	HeartbeatTimeoutCallback func(sessionID string, userID string, lastHeartbeat time.Time)
	// PresenceChangeCallback 在线状态变化回调
	PresenceChangeCallback func(userID string, status PresenceStatus)
)

// ============================================================================
// Core 核心结构
// ============================================================================

// Core 实时消息核心：连接管理、订阅路由、消息投递、在线状态与未读协调
type Core struct {
	nodeID    string
	startTime time.Time

	sessions       map[string]*Session
	userToSessions map[string]map[string]*Session

	// 原子计数器：用于快速获取连接数，避免加锁
	activeSessionsCount atomic.Int64

	// 消息统计计数器
	messagesSent      atomic.Int64
	messagesDelivered atomic.Int64

	// 订阅路由表 sessionID -> kind 集合
	subscriptions map[string]map[ChannelKind]struct{}
	subMutex      sync.RWMutex

	// 在线宽限期定时器 userID -> timer
	graceTimers map[string]*time.Timer
	graceMutex  sync.Mutex

	messageRepo      MessageRepository
	unreadRepo       UnreadRepository
	onlineStatusRepo OnlineStatusRepository

	contactsProvider   ContactsProvider
	recipientDirectory RecipientDirectory

	idGenerator IDGenerator
	workerID    int64

	// 📡 事件发布订阅
	pubsub *cachex.PubSub

	tokenValidator TokenValidator
	rateLimiter    *RateLimiter

	sessionConnectCallback    SessionConnectCallback
	sessionDisconnectCallback SessionDisconnectCallback
	heartbeatTimeoutCallback  HeartbeatTimeoutCallback
	presenceChangeCallback    PresenceChangeCallback

	wg       sync.WaitGroup
	shutdown atomic.Bool
	started  atomic.Bool
	startCh  chan struct{}

	logger IMLogger
	mutex  sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	config *CoreConfig
}

// NewCore 创建消息核心实例
func NewCore(config *CoreConfig) *Core {
	config = mathx.IF(config == nil, models.DefaultCoreConfig(), config)
	ctx, cancel := context.WithCancel(context.Background())
	workerID := osx.GetWorkerIdForSnowflake()

	c := &Core{
		nodeID:         config.NodeID(),
		startTime:      time.Now(),
		sessions:       make(map[string]*Session),
		userToSessions: make(map[string]map[string]*Session),
		subscriptions:  make(map[string]map[ChannelKind]struct{}),
		graceTimers:    make(map[string]*time.Timer),
		startCh:        make(chan struct{}),
		idGenerator:    idgen.NewShortFlakeGenerator(workerID),
		workerID:       workerID,
		logger:         middleware.DefaultLogger,
		ctx:            ctx,
		cancel:         cancel,
		config:         config,
	}
	c.rateLimiter = middleware.NewRateLimiter(&middleware.RateLimiterConfig{
		MaxMessagesPerSecond: config.SendRatePerSecond,
	})
	return c
}

// ============================================================================
// 链式配置
// ============================================================================

// WithLogger 设置日志器
func (c *Core) WithLogger(l IMLogger) *Core {
	if l != nil {
		c.logger = l
	}
	return c
}

// WithMessageRepository 设置消息仓储
func (c *Core) WithMessageRepository(repo MessageRepository) *Core {
	c.messageRepo = repo
	return c
}

// WithUnreadRepository 设置未读计数仓储
func (c *Core) WithUnreadRepository(repo UnreadRepository) *Core {
	c.unreadRepo = repo
	return c
}

// WithOnlineStatusRepository 设置在线状态仓储
func (c *Core) WithOnlineStatusRepository(repo OnlineStatusRepository) *Core {
	c.onlineStatusRepo = repo
	return c
}

// WithPubSub 设置跨节点事件发布订阅
func (c *Core) WithPubSub(ps *cachex.PubSub) *Core {
	c.pubsub = ps
	return c
}

// WithTokenValidator 设置连接鉴权器
func (c *Core) WithTokenValidator(v TokenValidator) *Core {
	c.tokenValidator = v
	return c
}

// WithRateLimiter 设置发送限流器
func (c *Core) WithRateLimiter(rl *RateLimiter) *Core {
	if rl != nil {
		c.rateLimiter = rl
	}
	return c
}

// WithContactsProvider 设置联系人提供者
func (c *Core) WithContactsProvider(p ContactsProvider) *Core {
	c.contactsProvider = p
	return c
}

// WithRecipientDirectory 设置收件人目录
func (c *Core) WithRecipientDirectory(d RecipientDirectory) *Core {
	c.recipientDirectory = d
	return c
}

// ============================================================================
// 回调注册
// ============================================================================

// OnSessionConnect 注册会话建立回调
func (c *Core) OnSessionConnect(cb SessionConnectCallback) *Core {
	c.sessionConnectCallback = cb
	return c
}

// OnSessionDisconnect 注册会话断开回调
func (c *Core) OnSessionDisconnect(cb SessionDisconnectCallback) *Core {
	c.sessionDisconnectCallback = cb
	return c
}

// OnHeartbeatTimeout 注册心跳超时回调
func (c *Core) OnHeartbeatTimeout(cb HeartbeatTimeoutCallback) *Core {
	c.heartbeatTimeoutCallback = cb
	return c
}

// OnPresenceChange 注册在线状态变化回调
func (c *Core) OnPresenceChange(cb PresenceChangeCallback) *Core {
	c.presenceChangeCallback = cb
	return c
}

// ============================================================================
// 访问器
// ============================================================================

// GetNodeID 获取节点ID
func (c *Core) GetNodeID() string { return c.nodeID }

// GetLogger 获取日志器
func (c *Core) GetLogger() IMLogger { return c.logger }

// GetContext 获取核心上下文
func (c *Core) GetContext() context.Context { return c.ctx }

// GetPubSub 获取事件发布订阅
func (c *Core) GetPubSub() *cachex.PubSub { return c.pubsub }

// GetConfig 获取配置
func (c *Core) GetConfig() *CoreConfig { return c.config }

// GetMessageRepository 获取消息仓储
func (c *Core) GetMessageRepository() MessageRepository { return c.messageRepo }

// GetUnreadRepository 获取未读计数仓储
func (c *Core) GetUnreadRepository() UnreadRepository { return c.unreadRepo }

// GetOnlineStatusRepository 获取在线状态仓储
func (c *Core) GetOnlineStatusRepository() OnlineStatusRepository { return c.onlineStatusRepo }

// SessionCount 当前连接会话数（无锁读取原子计数器）
func (c *Core) SessionCount() int64 { return c.activeSessionsCount.Load() }

// GetStats 获取核心运行时统计信息
func (c *Core) GetStats() *CoreStats {
	c.mutex.RLock()
	onlineUsers := len(c.userToSessions)
	c.mutex.RUnlock()

	return &CoreStats{
		TotalSessions:     int(c.activeSessionsCount.Load()),
		OnlineUsers:       onlineUsers,
		MessagesSent:      c.messagesSent.Load(),
		MessagesDelivered: c.messagesDelivered.Load(),
		Uptime:            int64(time.Since(c.startTime).Seconds()),
	}
}

// IsRunning 核心是否已启动且未关闭
func (c *Core) IsRunning() bool { return c.started.Load() && !c.shutdown.Load() }

// GetSession 按会话ID查找会话
func (c *Core) GetSession(sessionID string) (*Session, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	s, ok := c.sessions[sessionID]
	return s, ok
}

// GetUserSessions 获取某用户的全部会话副本
func (c *Core) GetUserSessions(userID string) []*Session {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	sessions := make([]*Session, 0, len(c.userToSessions[userID]))
	for _, s := range c.userToSessions[userID] {
		sessions = append(sessions, s)
	}
	return sessions
}

// GetSessionsCopy 获取所有会话副本
func (c *Core) GetSessionsCopy() []*Session {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	sessions := make([]*Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

// IsUserLocallyOnline 用户在本节点是否有存活会话
func (c *Core) IsUserLocallyOnline(userID string) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.userToSessions[userID]) > 0
}

// GetIDGenerator 获取ID生成器
func (c *Core) GetIDGenerator() IDGenerator { return c.idGenerator }

// NextMessageID 生成消息ID
func (c *Core) NextMessageID() string {
	return c.idGenerator.GenerateRequestID()
}
