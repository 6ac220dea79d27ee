package market

// Giphy embed snippets keyed by status class. The page shows one reaction GIF
// matching the day's verdict; unknown classes fall back to a shrug.
var embeds = map[string]string{
	ClassYes:      `<div style="width:100%;height:0;padding-bottom:56%;position:relative;"><iframe src="https://giphy.com/embed/1rNWZu4QQqCUaq434T" width="100%" height="100%" style="position:absolute" frameBorder="0" class="giphy-embed" allowFullScreen></iframe></div><p><a href="https://giphy.com/gifs/this-is-fine-dumpster-fire-floating-1rNWZu4QQqCUaq434T">via GIPHY</a></p>`,
	ClassBleeding: `<div style="width:100%;height:0;padding-bottom:50%;position:relative;"><iframe src="https://giphy.com/embed/3IMr40UId6417vSWZ6" width="100%" height="100%" style="position:absolute" frameBorder="0" class="giphy-embed" allowFullScreen></iframe></div><p><a href="https://giphy.com/gifs/a24-lamb-3IMr40UId6417vSWZ6">via GIPHY</a></p>`,
	ClassWobbly:   `<div style="width:100%;height:0;padding-bottom:100%;position:relative;"><iframe src="https://giphy.com/embed/NTur7XlVDUdqM" width="100%" height="100%" style="position:absolute" frameBorder="0" class="giphy-embed" allowFullScreen></iframe></div><p><a href="https://giphy.com/gifs/this-is-fine-dog-ntur7xldudqm">via GIPHY</a></p>`,
	ClassNo:       `<div style="width:100%;height:0;padding-bottom:100%;position:relative;"><iframe src="https://giphy.com/embed/d8SRR4aDUINuU" width="100%" height="100%" style="position:absolute" frameBorder="0" class="giphy-embed" allowFullScreen></iframe></div><p><a href="https://giphy.com/gifs/nooooo-d8SRR4aDUINuU">via GIPHY</a></p>`,
	ClassClimbing: `<div style="width:100%;height:0;padding-bottom:75%;position:relative;"><iframe src="https://giphy.com/embed/NEvPzZ8bd1V4Y" width="100%" height="100%" style="position:absolute" frameBorder="0" class="giphy-embed" allowFullScreen></iframe></div><p><a href="https://giphy.com/gifs/reactionseditor-yes-nice-nevpzz8bd1v4y">via GIPHY</a></p>`,
	ClassSideways: `<div style="width:100%;height:0;padding-bottom:56%;position:relative;"><iframe src="https://giphy.com/embed/l1J3VHwlmsc9vsmju" width="100%" height="100%" style="position:absolute" frameBorder="0" class="giphy-embed" allowFullScreen></iframe></div><p><a href="https://giphy.com/gifs/masterchef-fox-season-8-l1J3VHwlmsc9vsmju">via GIPHY</a></p>`,
	ClassError:    `<div style="width:100%;height:0;padding-bottom:56%;position:relative;"><iframe src="https://giphy.com/embed/JliGmPEIgzGLe" width="100%" height="100%" style="position:absolute" frameBorder="0" class="giphy-embed" allowFullScreen></iframe></div><p><a href="https://giphy.com/gifs/computer-computers-problems-JliGmPEIgzGLe">via GIPHY</a></p>`,
}

const defaultEmbed = `<div style="width:100%;height:0;padding-bottom:100%;position:relative;"><iframe src="https://giphy.com/embed/l0HlHFRbmaZtBRhXG" width="100%" height="100%" style="position:absolute" frameBorder="0" class="giphy-embed" allowFullScreen></iframe></div><p><a href="https://giphy.com/gifs/reactionseditor-shrug-l0hlhfrbmaztbrhxg">via GIPHY</a></p>`

// EmbedFor returns the Giphy embed HTML for a status class.
func EmbedFor(class string) string {
	if e, ok := embeds[class]; ok {
		return e
	}
	return defaultEmbed
}
