package view

import "fmt"

const (
	imageServer = "https://images.evetech.net"
	zkillboard  = "https://zkillboard.com"

	// PlaceholderImage is shown when no portrait or logo can be derived.
	PlaceholderImage = "https://imageserver.eveonline.com/icons/no-image.png"
)

func CharacterPortrait(id int64) string {
	return fmt.Sprintf("%s/characters/%d/portrait?size=64", imageServer, id)
}

func AllianceLogo(id int64) string {
	return fmt.Sprintf("%s/alliances/%d/logo?size=64", imageServer, id)
}

func CorporationLogo(id int64) string {
	return fmt.Sprintf("%s/corporations/%d/logo?size=64", imageServer, id)
}

func ShipRender(typeID int64) string {
	if typeID == 0 {
		return PlaceholderImage
	}
	return fmt.Sprintf("%s/types/%d/render?size=64", imageServer, typeID)
}

func TypeIcon(typeID int64) string {
	if typeID == 0 {
		return PlaceholderImage
	}
	return fmt.Sprintf("%s/types/%d/icon?size=64", imageServer, typeID)
}

func KillmailLink(killmailID int64) string {
	return fmt.Sprintf("%s/kill/%d/", zkillboard, killmailID)
}

// Image is a picture plus the page it links to. Link is empty for the placeholder.
type Image struct {
	URL  string `json:"url"`
	Link string `json:"link,omitempty"`
}

// EntityImage picks the picture for a victim or subject id:
//  1. a character portrait when id is set and differs from both the alliance and corporation id
//  2. the alliance logo when id is the alliance
//  3. the corporation logo when id is the corporation
//  4. the placeholder otherwise
func EntityImage(id, allianceID, corporationID int64) Image {
	switch {
	case id != 0 && id != allianceID && id != corporationID:
		return Image{URL: CharacterPortrait(id), Link: fmt.Sprintf("%s/character/%d/", zkillboard, id)}
	case allianceID != 0 && id == allianceID:
		return Image{URL: AllianceLogo(allianceID), Link: fmt.Sprintf("%s/alliance/%d/", zkillboard, allianceID)}
	case corporationID != 0 && id == corporationID:
		return Image{URL: CorporationLogo(corporationID), Link: fmt.Sprintf("%s/corporation/%d/", zkillboard, corporationID)}
	}
	return Image{URL: PlaceholderImage}
}
