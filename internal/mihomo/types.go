package mihomo

// 控制面API的数据结构，字段名与mihomo外部控制器的JSON保持一致

// Version /version响应
type Version struct {
	Version string `json:"version"`
	Meta    bool   `json:"meta"`
}

// Traffic 流量采样，字节/秒
type Traffic struct {
	Up   uint64 `json:"up"`
	Down uint64 `json:"down"`
}

// Memory 内存采样
type Memory struct {
	InUse   uint64 `json:"inuse"`
	OSLimit uint64 `json:"oslimit"`
}

// LogLevel 日志级别
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
	LogLevelSilent  LogLevel = "silent"
)

// severity 级别排序，过滤时低于阈值的丢弃
func (l LogLevel) severity() int {
	switch l {
	case LogLevelDebug:
		return 0
	case LogLevelInfo:
		return 1
	case LogLevelWarning:
		return 2
	case LogLevelError:
		return 3
	case LogLevelSilent:
		return 4
	default:
		return 1
	}
}

// AtLeast 判断本级别是否不低于阈值
func (l LogLevel) AtLeast(min LogLevel) bool {
	return l.severity() >= min.severity()
}

// LogEntry 内核日志条目
type LogEntry struct {
	Type    LogLevel `json:"type"`
	Payload string   `json:"payload"`
}

// DelayHistory 延迟测试历史
type DelayHistory struct {
	Delay int    `json:"delay"`
	Time  string `json:"time,omitempty"`
}

/**
 * Proxy /proxies返回的代理节点或代理组
 * @property {string} now - 代理组当前选中的节点，普通节点为空
 * @property {[]string} all - 代理组可选节点列表
 */
type Proxy struct {
	Name    string         `json:"name"`
	Type    string         `json:"type"`
	Now     string         `json:"now,omitempty"`
	All     []string       `json:"all,omitempty"`
	UDP     bool           `json:"udp"`
	Alive   bool           `json:"alive"`
	Hidden  bool           `json:"hidden"`
	History []DelayHistory `json:"history"`
}

// 代理组类型集合，区分节点与组
var groupTypes = map[string]bool{
	"Selector":    true,
	"URLTest":     true,
	"Fallback":    true,
	"LoadBalance": true,
	"Relay":       true,
}

// IsGroup 判断是否为代理组
func (p Proxy) IsGroup() bool {
	return groupTypes[p.Type]
}

type proxiesResponse struct {
	Proxies map[string]Proxy `json:"proxies"`
}

// DelayResult /proxies/<name>/delay响应
type DelayResult struct {
	Delay int `json:"delay"`
}

// ConnectionMetadata 连接元数据
type ConnectionMetadata struct {
	Network         string `json:"network"`
	Type            string `json:"type"`
	SourceIP        string `json:"sourceIP"`
	DestinationIP   string `json:"destinationIP"`
	SourcePort      string `json:"sourcePort"`
	DestinationPort string `json:"destinationPort"`
	Host            string `json:"host"`
}

// Connection 一条活动连接
type Connection struct {
	ID          string             `json:"id"`
	Metadata    ConnectionMetadata `json:"metadata"`
	Upload      uint64             `json:"upload"`
	Download    uint64             `json:"download"`
	Start       string             `json:"start"`
	Chains      []string           `json:"chains"`
	Rule        string             `json:"rule"`
	RulePayload string             `json:"rulePayload"`
}

// ConnectionsSnapshot /connections响应，含累计流量
type ConnectionsSnapshot struct {
	DownloadTotal uint64       `json:"downloadTotal"`
	UploadTotal   uint64       `json:"uploadTotal"`
	Memory        uint64       `json:"memory"`
	Connections   []Connection `json:"connections"`
}
