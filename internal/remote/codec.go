package remote

import (
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"catalog-sync-service/internal/catalog"
)

// Item is one row of a remote table.
type Item = map[string]types.AttributeValue

// Attribute names of the cloud tables.
const (
	AttrProductCode     = "codigo"
	AttrDescription     = "descripcion"
	AttrManufactureDate = "fecha_fab"
	AttrCost            = "costo"
	AttrStock           = "disponibilidad"
	AttrDeleted         = "eliminado"
	AttrImageURI        = "imagenUri"

	AttrUserID    = "id"
	AttrFirstName = "nombre"
	AttrLastName  = "apellido"
	AttrPassword  = "password"
)

func ProductKey(code string) Item {
	return Item{AttrProductCode: &types.AttributeValueMemberS{Value: code}}
}

func EncodeProduct(p *catalog.Product) Item {
	return Item{
		AttrProductCode:     &types.AttributeValueMemberS{Value: p.Code},
		AttrDescription:     &types.AttributeValueMemberS{Value: p.Description},
		AttrManufactureDate: &types.AttributeValueMemberS{Value: p.ManufactureDate},
		AttrCost:            &types.AttributeValueMemberN{Value: strconv.FormatFloat(p.Cost, 'f', -1, 64)},
		AttrStock:           &types.AttributeValueMemberN{Value: strconv.Itoa(p.Stock)},
		AttrDeleted:         &types.AttributeValueMemberBOOL{Value: p.Deleted},
		AttrImageURI:        &types.AttributeValueMemberS{Value: p.ImageURI},
	}
}

// DecodeProduct maps a scanned item to a product marked as synced. Missing or
// mistyped attributes decode to zero values.
func DecodeProduct(item Item) *catalog.Product {
	return &catalog.Product{
		Code:            stringAttr(item, AttrProductCode),
		Description:     stringAttr(item, AttrDescription),
		ManufactureDate: stringAttr(item, AttrManufactureDate),
		Cost:            floatAttr(item, AttrCost),
		Stock:           int(intAttr(item, AttrStock)),
		Deleted:         boolAttr(item, AttrDeleted),
		ImageURI:        stringAttr(item, AttrImageURI),
		Synced:          true,
	}
}

func UserKey(id int64) Item {
	return Item{AttrUserID: &types.AttributeValueMemberN{Value: strconv.FormatInt(id, 10)}}
}

func EncodeUser(u *catalog.User) Item {
	return Item{
		AttrUserID:    &types.AttributeValueMemberN{Value: strconv.FormatInt(u.ID, 10)},
		AttrFirstName: &types.AttributeValueMemberS{Value: u.FirstName},
		AttrLastName:  &types.AttributeValueMemberS{Value: u.LastName},
		AttrPassword:  &types.AttributeValueMemberS{Value: u.Password},
	}
}

func DecodeUser(item Item) *catalog.User {
	return &catalog.User{
		ID:        intAttr(item, AttrUserID),
		FirstName: stringAttr(item, AttrFirstName),
		LastName:  stringAttr(item, AttrLastName),
		Password:  stringAttr(item, AttrPassword),
		Synced:    true,
	}
}

func stringAttr(item Item, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func numberAttr(item Item, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberN); ok {
		return v.Value
	}
	return ""
}

func floatAttr(item Item, name string) float64 {
	f, err := strconv.ParseFloat(numberAttr(item, name), 64)
	if err != nil {
		return 0
	}
	return f
}

func intAttr(item Item, name string) int64 {
	raw := numberAttr(item, name)
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return int64(f)
	}
	return 0
}

func boolAttr(item Item, name string) bool {
	if v, ok := item[name].(*types.AttributeValueMemberBOOL); ok {
		return v.Value
	}
	return false
}
