package models

// HostGroup 主机组
type HostGroup struct {
	ID   uint64 `gorm:"primaryKey" json:"groupid"`
	Name string `gorm:"size:255;not null" json:"name"`
}

func (HostGroup) TableName() string {
	return "host_groups"
}

// Host 主机，模板同表存放
type Host struct {
	ID         uint64 `gorm:"primaryKey" json:"hostid"`
	Name       string `gorm:"size:128;not null" json:"name"`
	IsTemplate bool   `gorm:"default:false;index" json:"is_template"`
	ProxyID    uint64 `json:"proxyid"`
}

func (Host) TableName() string {
	return "hosts"
}

// Trigger 触发器
type Trigger struct {
	ID          uint64 `gorm:"primaryKey" json:"triggerid"`
	HostID      uint64 `gorm:"not null;index" json:"hostid"`
	Description string `gorm:"size:255;not null" json:"description"`
	Expression  string `gorm:"size:2048" json:"expression"`
	Priority    int    `gorm:"default:0" json:"priority"`

	Host Host `gorm:"foreignKey:HostID" json:"-"`
}

func (Trigger) TableName() string {
	return "triggers"
}

// Proxy 代理
type Proxy struct {
	ID   uint64 `gorm:"primaryKey" json:"proxyid"`
	Name string `gorm:"size:128;not null" json:"name"`
}

func (Proxy) TableName() string {
	return "proxies"
}

// DRule 网络发现规则
type DRule struct {
	ID      uint64 `gorm:"primaryKey" json:"druleid"`
	Name    string `gorm:"size:255;not null" json:"name"`
	IPRange string `gorm:"size:2048" json:"iprange"`
}

func (DRule) TableName() string {
	return "drules"
}

// DCheck 网络发现检查
type DCheck struct {
	ID      uint64 `gorm:"primaryKey" json:"dcheckid"`
	DRuleID uint64 `gorm:"not null;index" json:"druleid"`
	Type    int    `gorm:"default:0" json:"type"` // SSH=0 ... Telnet=15
	Key     string `gorm:"size:2048" json:"key_"`
	Ports   string `gorm:"size:255;default:'0'" json:"ports"`

	DRule DRule `gorm:"foreignKey:DRuleID" json:"-"`
}

func (DCheck) TableName() string {
	return "dchecks"
}

// Service 业务服务
type Service struct {
	ID   uint64 `gorm:"primaryKey" json:"serviceid"`
	Name string `gorm:"size:128;not null" json:"name"`
}

func (Service) TableName() string {
	return "services"
}

// All returns every model managed by the migrations.
func All() []any {
	return []any{
		&Action{}, &ActionCondition{}, &ActionOperation{},
		&HostGroup{}, &Host{}, &Trigger{}, &Proxy{}, &DRule{}, &DCheck{}, &Service{},
	}
}
