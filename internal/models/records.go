package models

import "time"

// SLADomain is a global SLA domain.
type SLADomain struct {
	ID   string `mapstructure:"id" json:"id"`
	Name string `mapstructure:"name" json:"name"`
}

// Ref is a short {id, name} reference embedded in other records.
type Ref struct {
	ID   string `mapstructure:"id" json:"id"`
	Name string `mapstructure:"name" json:"name"`
}

// Snapshot is a recovery point of a snappable object. Date is kept as the
// server sent it; recovery-point matching parses it.
type Snapshot struct {
	ID                 string `mapstructure:"id" json:"id"`
	Date               string `mapstructure:"date" json:"date"`
	ExpirationDate     string `mapstructure:"expirationDate" json:"expirationDate,omitempty"`
	IsOnDemandSnapshot bool   `mapstructure:"isOnDemandSnapshot" json:"isOnDemandSnapshot"`
	IsExpired          bool   `mapstructure:"isExpired" json:"isExpired"`
}

// Event is the last activity of an activity series.
type Event struct {
	ID                 string    `mapstructure:"id" json:"id"`
	ActivitySeriesID   string    `mapstructure:"activitySeriesId" json:"activitySeriesId"`
	LastUpdated        time.Time `mapstructure:"lastUpdated" json:"lastUpdated"`
	LastActivityType   string    `mapstructure:"lastActivityType" json:"lastActivityType"`
	LastActivityStatus string    `mapstructure:"lastActivityStatus" json:"lastActivityStatus"`
	ObjectID           string    `mapstructure:"objectId" json:"objectId"`
	ObjectName         string    `mapstructure:"objectName" json:"objectName"`
	ObjectType         string    `mapstructure:"objectType" json:"objectType"`
	Severity           string    `mapstructure:"severity" json:"severity"`
	Cluster            Ref       `mapstructure:"cluster" json:"cluster"`
}

// ReportEntry is one protected object in the compliance report.
type ReportEntry struct {
	ID               string `mapstructure:"id" json:"id"`
	Name             string `mapstructure:"name" json:"name"`
	ObjectType       string `mapstructure:"objectType" json:"objectType"`
	ComplianceStatus string `mapstructure:"complianceStatus" json:"complianceStatus"`
	ProtectionStatus string `mapstructure:"protectionStatus" json:"protectionStatus"`
	TotalSnapshots   int    `mapstructure:"totalSnapshots" json:"totalSnapshots"`
	LastSnapshot     string `mapstructure:"lastSnapshot" json:"lastSnapshot,omitempty"`
	Cluster          Ref    `mapstructure:"cluster" json:"cluster"`
	SLADomain        Ref    `mapstructure:"slaDomain" json:"slaDomain"`
}

// Tag is a cloud provider key/value tag or label.
type Tag struct {
	Key   string `mapstructure:"key" json:"key"`
	Value string `mapstructure:"value" json:"value"`
}

// CloudInstance is a cloud-native compute instance (AWS EC2, Azure VM or
// GCP GCE); provider-specific field names are aliased to these keys in the
// query documents.
type CloudInstance struct {
	ID                 string `mapstructure:"id" json:"id"`
	NativeID           string `mapstructure:"nativeId" json:"nativeId"`
	Name               string `mapstructure:"name" json:"name"`
	Region             string `mapstructure:"region" json:"region"`
	Network            string `mapstructure:"network" json:"network"`
	IsRelic            bool   `mapstructure:"isRelic" json:"isRelic"`
	EffectiveSLADomain Ref    `mapstructure:"effectiveSlaDomain" json:"effectiveSlaDomain"`
	Tags               []Tag  `mapstructure:"tags" json:"tags"`
}

// TaskChainRef links a snappable object to the task chain that snapshots it.
type TaskChainRef struct {
	SnappableID   string `json:"snappableId"`
	TaskChainUUID string `json:"taskchainUuid"`
}

// ObjectError is a per-object failure reported by a mutation.
type ObjectError struct {
	ObjectID string `json:"objectId"`
	Error    string `json:"error"`
}

// OnDemandResult is the payload of an on-demand snapshot submission.
type OnDemandResult struct {
	TaskChains []TaskChainRef `json:"taskchainUuids"`
	Errors     []ObjectError  `json:"errors"`
}
