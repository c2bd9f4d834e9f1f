package profile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"mihomoctl/internal/env"
	"mihomoctl/internal/errs"
	"mihomoctl/internal/logger"
	"mihomoctl/internal/utils"
)

// DefaultProfileName 自动生成的最小配置的名字
const DefaultProfileName = "default"

// 最小可用配置，ensureDefaultConfig在没有任何配置时写入
const defaultProfileContent = `# mihomo 配置文件
# 更多配置选项请参考: https://wiki.metacubex.one/config/

port: 7890
socks-port: 7891
allow-lan: false
mode: rule
log-level: info

proxies: []
proxy-groups: []
rules:
  - MATCH,DIRECT
`

// validate要求存在的顶层键，按此顺序报第一个缺失键
var requiredKeys = []string{"port", "mode", "log-level"}

/**
 * Manager 组合配置库与结构校验、外部控制器发现
 * @property {*Store} store - 磁盘配置库
 */
type Manager struct {
	home  env.Home
	store *Store
}

func NewManager(home env.Home) *Manager {
	return &Manager{home: home, store: NewStore(home)}
}

// Store 暴露底层配置库
func (m *Manager) Store() *Store {
	return m.store
}

/**
 * EnsureDefaultConfig 保证至少存在一个可用配置
 * @returns {Profile} 生效的配置
 * @returns {error} IO error on write failure
 * @description
 * - 已有配置时不做任何事(幂等)
 * - 没有配置时生成最小配置"default"并把当前指针指向它
 */
func (m *Manager) EnsureDefaultConfig() (Profile, error) {
	profiles, err := m.store.List()
	if err != nil {
		return Profile{}, err
	}
	if len(profiles) > 0 {
		current, err := m.store.Current()
		if err != nil {
			return Profile{}, err
		}
		if current == "" {
			// 有配置但指针未设置，指向最早创建的那个
			if err := m.store.SetCurrent(profiles[0].Name); err != nil {
				return Profile{}, err
			}
			current = profiles[0].Name
		}
		return m.store.Get(current)
	}

	if err := m.store.Save(DefaultProfileName, []byte(defaultProfileContent)); err != nil {
		return Profile{}, err
	}
	if err := m.store.SetCurrent(DefaultProfileName); err != nil {
		return Profile{}, err
	}
	logger.Infof("Created default profile at %s", m.home.ProfilePath(DefaultProfileName))
	return m.store.Get(DefaultProfileName)
}

/**
 * EnsureExternalController 保证当前配置声明了外部控制器
 * @returns {string} 控制器URL(http://host:port)
 * @returns {string} API密钥
 * @returns {error} Validation error if the profile is malformed
 * @description
 * - external-controller缺失时分配一个空闲本地端口
 * - secret缺失时生成随机密钥
 * - 只有补了值才回写文件(幂等)
 */
func (m *Manager) EnsureExternalController() (string, string, error) {
	name, err := m.store.Current()
	if err != nil {
		return "", "", err
	}
	if name == "" {
		p, err := m.EnsureDefaultConfig()
		if err != nil {
			return "", "", err
		}
		name = p.Name
	}

	data, err := m.store.Read(name)
	if err != nil {
		return "", "", err
	}
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return "", "", errs.WrapKind(err, errs.KindValidation, "profile '%s' is not valid YAML", name)
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}

	changed := false
	controller, _ := doc["external-controller"].(string)
	if controller == "" {
		port, err := utils.FreePort()
		if err != nil {
			return "", "", errs.WrapKind(err, errs.KindIO, "allocate controller port")
		}
		// FreePort返回后到写入配置前，端口可能被其他进程抢走，占用了就重新申请一次
		if !utils.CheckPortAvailable(port) {
			if port, err = utils.FreePort(); err != nil {
				return "", "", errs.WrapKind(err, errs.KindIO, "allocate controller port")
			}
		}
		controller = fmt.Sprintf("127.0.0.1:%d", port)
		doc["external-controller"] = controller
		changed = true
	}
	secret, _ := doc["secret"].(string)
	if secret == "" {
		secret, err = utils.RandomSecret(16)
		if err != nil {
			return "", "", errs.WrapKind(err, errs.KindIO, "generate controller secret")
		}
		doc["secret"] = secret
		changed = true
	}

	if changed {
		out, err := yaml.Marshal(doc)
		if err != nil {
			return "", "", errs.WrapKind(err, errs.KindIO, "encode profile '%s'", name)
		}
		if err := m.store.Save(name, out); err != nil {
			return "", "", err
		}
		logger.Infof("Profile '%s' updated with external controller %s", name, controller)
	}

	return "http://" + controller, secret, nil
}

/**
 * ControllerEndpoint 读取当前配置声明的控制器地址与密钥，不做修改
 * @returns {string} 控制器URL
 * @returns {string} API密钥(可能为空)
 * @returns {error} NotFound if no current profile, Validation if it lacks a controller
 */
func (m *Manager) ControllerEndpoint() (string, string, error) {
	name, err := m.store.Current()
	if err != nil {
		return "", "", err
	}
	if name == "" {
		return "", "", errs.NotFound("no current profile is set")
	}
	return m.ControllerEndpointAt(m.home.ProfilePath(name))
}

/**
 * ControllerEndpointAt 从指定配置文件读取控制器地址与密钥
 * @param {string} path - 配置文件路径
 * @description
 * - 运行中进程的配置可能不是当前指针指向的那份，按记录里的路径读
 */
func (m *Manager) ControllerEndpointAt(path string) (string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", "", errs.NotFound("config file '%s' does not exist", path)
		}
		return "", "", errs.WrapKind(err, errs.KindIO, "read config file")
	}
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return "", "", errs.WrapKind(err, errs.KindValidation, "config '%s' is not valid YAML", path)
	}
	controller, _ := doc["external-controller"].(string)
	if controller == "" {
		return "", "", errs.Validation("config '%s' does not declare external-controller", path)
	}
	secret, _ := doc["secret"].(string)
	return "http://" + controller, secret, nil
}

// SetCurrent 切换当前配置
func (m *Manager) SetCurrent(name string) error {
	if err := m.store.SetCurrent(name); err != nil {
		return errs.Wrap(err, "set current profile")
	}
	logger.Infof("Current profile set to '%s'", name)
	return nil
}

/**
 * CurrentPath 当前配置文件路径
 * @returns {string} 配置文件路径
 * @returns {error} NotFound if no current profile is set
 */
func (m *Manager) CurrentPath() (string, error) {
	name, err := m.store.Current()
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", errs.NotFound("no current profile is set")
	}
	return m.home.ProfilePath(name), nil
}

/**
 * Validate 对配置文件做结构校验
 * @param {string} path - 配置文件路径
 * @returns {error} Validation error naming the first missing/malformed key
 * @description
 * - 只检查文档结构和必需键，不解释路由规则语义
 */
func (m *Manager) Validate(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errs.NotFound("config file '%s' does not exist", path)
		}
		return errs.WrapKind(err, errs.KindIO, "read config file")
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return errs.WrapKind(err, errs.KindValidation, "config is not a valid YAML document")
	}
	if doc == nil {
		return errs.Validation("config is empty")
	}
	for _, key := range requiredKeys {
		if _, ok := doc[key]; !ok {
			return errs.Validation("config is missing required key '%s'", key)
		}
	}
	if _, ok := doc["port"].(int); !ok {
		return errs.Validation("config key 'port' must be an integer")
	}
	if _, ok := doc["mode"].(string); !ok {
		return errs.Validation("config key 'mode' must be a string")
	}
	return nil
}
