package game

import "automancy.dev/internal/data"

// UiUnit is a typed node in the tree the UI collaborator evaluates into
// widgets. Units are plain data; the core never renders them.
type UiUnitKind string

const (
	UiRow               UiUnitKind = "row"
	UiCenterRow         UiUnitKind = "center_row"
	UiCol               UiUnitKind = "col"
	UiLabel             UiUnitKind = "label"
	UiInfoTip           UiUnitKind = "info_tip"
	UiLabelAmount       UiUnitKind = "label_amount"
	UiInputAmount       UiUnitKind = "input_amount"
	UiSliderAmount      UiUnitKind = "slider_amount"
	UiHexDirInput       UiUnitKind = "hex_dir_input"
	UiSelectableItems   UiUnitKind = "selectable_items"
	UiSelectableScripts UiUnitKind = "selectable_scripts"
	UiInventory         UiUnitKind = "inventory"
	UiLinkage           UiUnitKind = "linkage"
)

type UiUnit struct {
	Kind     UiUnitKind `json:"kind"`
	Text     string     `json:"text,omitempty"`
	DataKey  data.Id    `json:"data_key,omitempty"`
	Amount   int        `json:"amount,omitempty"`
	Max      int        `json:"max,omitempty"`
	Ids      []data.Id  `json:"ids,omitempty"`
	Children []UiUnit   `json:"children,omitempty"`
}

func Row(children ...UiUnit) UiUnit       { return UiUnit{Kind: UiRow, Children: children} }
func CenterRow(children ...UiUnit) UiUnit { return UiUnit{Kind: UiCenterRow, Children: children} }
func Col(children ...UiUnit) UiUnit       { return UiUnit{Kind: UiCol, Children: children} }
func Label(text string) UiUnit            { return UiUnit{Kind: UiLabel, Text: text} }
func InfoTip(text string) UiUnit          { return UiUnit{Kind: UiInfoTip, Text: text} }

func LabelAmount(amount int) UiUnit {
	return UiUnit{Kind: UiLabelAmount, Amount: amount}
}

func InputAmount(key data.Id, max int) UiUnit {
	return UiUnit{Kind: UiInputAmount, DataKey: key, Max: max}
}

func SliderAmount(key data.Id, max int) UiUnit {
	return UiUnit{Kind: UiSliderAmount, DataKey: key, Max: max}
}

func HexDirInput(key data.Id) UiUnit {
	return UiUnit{Kind: UiHexDirInput, DataKey: key}
}

func SelectableItems(key data.Id, ids []data.Id) UiUnit {
	return UiUnit{Kind: UiSelectableItems, DataKey: key, Ids: ids}
}

func SelectableScripts(key data.Id, ids []data.Id) UiUnit {
	return UiUnit{Kind: UiSelectableScripts, DataKey: key, Ids: ids}
}

func InventoryUnit(key data.Id, emptyText string) UiUnit {
	return UiUnit{Kind: UiInventory, DataKey: key, Text: emptyText}
}

func Linkage(key data.Id, buttonText string) UiUnit {
	return UiUnit{Kind: UiLinkage, DataKey: key, Text: buttonText}
}
