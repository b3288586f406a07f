package dynamo

// DynamoDB attribute names of the devices table. They match the dynamodbav
// tags on domain.Device and the keys accepted by DeviceRepo.Update.
const (
	fieldDeviceID   = "device_id"
	fieldName       = "name"
	fieldType       = "type"
	fieldLocation   = "location"
	fieldStatus     = "status"
	fieldBattery    = "battery"
	fieldLastUpdate = "last_update"
)
