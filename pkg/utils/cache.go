package utils

import (
	"sync"
	"time"
)

// OAuth state 的本机缓存，key 为 state，value 为发起授权的上下文。
// 单实例部署够用；多实例部署需要换成共享存储。
var stateCache sync.Map

// state 写入后 10 分钟内有效，足够用户在 Google 同意页走完流程
const stateTTL = 10 * time.Minute

// OAuthState 授权流程上下文，state 回传时据此恢复发起者
type OAuthState struct {
	UserID      int64
	AccountType string
	expiresAt   time.Time
}

// PutOAuthState 记录一次授权发起
func PutOAuthState(state string, userID int64, accountType string) {
	stateCache.Store(state, OAuthState{
		UserID:      userID,
		AccountType: accountType,
		expiresAt:   time.Now().Add(stateTTL),
	})
}

// TakeOAuthState 取出授权上下文，state 用完即焚
func TakeOAuthState(state string) (*OAuthState, bool) {
	val, ok := stateCache.LoadAndDelete(state)
	if !ok {
		return nil, false
	}
	entry := val.(OAuthState)
	if time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return &entry, true
}
