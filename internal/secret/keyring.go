package secret

import "github.com/zalando/go-keyring"

// KeyringAPI 是对 OS keyring 的最小抽象，便于测试。
// service 对应 keyring 的 service name，account 对应 user/account。
type KeyringAPI interface {
	Get(service, account string) (string, error)
	Set(service, account, value string) error
	Delete(service, account string) error
}

// 默认 keyring 实现（zalando/go-keyring：macOS Keychain / Secret Service）。
func defaultKeyring() KeyringAPI {
	return &osKeyring{}
}

type osKeyring struct{}

func (o *osKeyring) Get(service, account string) (string, error) {
	return keyring.Get(service, account)
}

func (o *osKeyring) Set(service, account, value string) error {
	return keyring.Set(service, account, value)
}

func (o *osKeyring) Delete(service, account string) error {
	return keyring.Delete(service, account)
}
