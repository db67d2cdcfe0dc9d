package worker

import "github.com/ToolmanP/forumactif-archiver/pkg/sqldump"

// Ids reserved by a fresh phpBB install.
const (
	anonymousID = 1
	adminID     = 2

	groupGuests     = 1
	groupRegistered = 2
	groupGlobalMods = 4
	groupAdmins     = 5
	groupBots       = 6
	firstGroupID    = 8

	adminColour = "AA0000"
	botColour   = "9E8DA7"
)

type bot struct {
	Name  string
	Agent string
}

var bots = []bot{
	{"AdsBot [Google]", "AdsBot-Google"},
	{"Alexa [Bot]", "ia_archiver"},
	{"Alta Vista [Bot]", "Scooter/"},
	{"Ask Jeeves [Bot]", "Ask Jeeves"},
	{"Baidu [Spider]", "Baiduspider+("},
	{"Bing [Bot]", "bingbot/"},
	{"Exabot [Bot]", "Exabot/"},
	{"FAST Enterprise [Crawler]", "FAST Enterprise Crawler"},
	{"FAST WebCrawler [Crawler]", "FAST-WebCrawler/"},
	{"Francis [Bot]", "http://www.neomo.de/"},
	{"Gigabot [Bot]", "Gigabot/"},
	{"Google Adsense [Bot]", "Mediapartners-Google"},
	{"Google Desktop", "Google Desktop"},
	{"Google Feedfetcher", "Feedfetcher-Google"},
	{"Google [Bot]", "Googlebot"},
	{"Heise IT-Markt [Crawler]", "heise-IT-Markt-Crawler"},
	{"Heritrix [Crawler]", "heritrix/1."},
	{"IBM Research [Bot]", "ibm.com/cs/crawler"},
	{"ICCrawler - ICjobs", "ICCrawler - ICjobs"},
	{"ichiro [Crawler]", "ichiro/"},
	{"Majestic-12 [Bot]", "MJ12bot/"},
	{"Metager [Bot]", "MetagerBot/"},
	{"MSN NewsBlogs", "msnbot-NewsBlogs/"},
	{"MSN [Bot]", "msnbot/"},
	{"MSNbot Media", "msnbot-media/"},
	{"NG-Search [Bot]", "NG-Search/"},
	{"Nutch [Bot]", "http://lucene.apache.org/nutch/"},
	{"Nutch/CVS [Bot]", "NutchCVS/"},
	{"OmniExplorer [Bot]", "OmniExplorer_Bot/"},
	{"Online link [Validator]", "online link validator"},
	{"psbot [Picsearch]", "psbot/0"},
	{"Seekport [Bot]", "Seekbot/"},
	{"Sensis [Crawler]", "Sensis Web Crawler"},
	{"SEO Crawler", "SEO search Crawler/"},
	{"Seoma [Crawler]", "Seoma [SEO Crawler]"},
	{"SEOSearch [Crawler]", "SEOsearch/"},
	{"Snappy [Bot]", "Snappy/1.1 ( http://www.urltrends.com/ )"},
	{"Steeler [Crawler]", "http://www.tkl.iis.u-tokyo.ac.jp/~crawler/"},
	{"Synoo [Bot]", "SynooBot/"},
	{"Telekom [Bot]", "crawleradmin.t-info@telekom.de"},
	{"TurnitinBot [Bot]", "TurnitinBot/"},
	{"Voyager [Bot]", "voyager/1.0"},
	{"W3 [Sitesearch]", "W3 SiteSearch Crawler"},
	{"W3C [Linkcheck]", "W3C-checklink/"},
	{"W3C [Validator]", "W3C_*Validator"},
	{"WiseNut [Bot]", "http://www.WISEnutbot.com"},
	{"YaCy [Bot]", "yacybot"},
	{"Yahoo MMCrawler [Bot]", "Yahoo-MMCrawler/"},
	{"Yahoo Slurp [Bot]", "Yahoo! DE Slurp"},
	{"Yahoo [Bot]", "Yahoo! Slurp"},
	{"YahooSeeker [Bot]", "YahooSeeker/"},
}

// firstUserID follows the anonymous user, the administrator and the bots.
var firstUserID = len(bots) + 3

type defaultSmiley struct {
	Code    string
	Emotion string
	File    string
	Width   int
	Height  int
}

// defaultSmilies ship with phpBB; Forumactif smilies with the same code
// reuse them.
var defaultSmilies = []defaultSmiley{
	{":D", "Very Happy", "icon_e_biggrin.gif", 15, 17},
	{":-D", "Very Happy", "icon_e_biggrin.gif", 15, 17},
	{":grin:", "Very Happy", "icon_e_biggrin.gif", 15, 17},
	{":)", "Smile", "icon_e_smile.gif", 15, 17},
	{":-)", "Smile", "icon_e_smile.gif", 15, 17},
	{":smile:", "Smile", "icon_e_smile.gif", 15, 17},
	{";)", "Wink", "icon_e_wink.gif", 15, 17},
	{";-)", "Wink", "icon_e_wink.gif", 15, 17},
	{":wink:", "Wink", "icon_e_wink.gif", 15, 17},
	{":(", "Sad", "icon_e_sad.gif", 15, 17},
	{":-(", "Sad", "icon_e_sad.gif", 15, 17},
	{":sad:", "Sad", "icon_e_sad.gif", 15, 17},
	{":o", "Surprised", "icon_e_surprised.gif", 15, 17},
	{":-o", "Surprised", "icon_e_surprised.gif", 15, 17},
	{":eek:", "Surprised", "icon_e_surprised.gif", 15, 17},
	{":shock:", "Shocked", "icon_eek.gif", 15, 17},
	{":?", "Confused", "icon_e_confused.gif", 15, 17},
	{":-?", "Confused", "icon_e_confused.gif", 15, 17},
	{":???:", "Confused", "icon_e_confused.gif", 15, 17},
	{"8-)", "Cool", "icon_cool.gif", 15, 17},
	{":cool:", "Cool", "icon_cool.gif", 15, 17},
	{":lol:", "Laughing", "icon_lol.gif", 15, 17},
	{":x", "Mad", "icon_mad.gif", 15, 17},
	{":-x", "Mad", "icon_mad.gif", 15, 17},
	{":mad:", "Mad", "icon_mad.gif", 15, 17},
	{":P", "Razz", "icon_razz.gif", 15, 17},
	{":-P", "Razz", "icon_razz.gif", 15, 17},
	{":razz:", "Razz", "icon_razz.gif", 15, 17},
	{":oops:", "Embarrassed", "icon_redface.gif", 15, 17},
	{":cry:", "Crying or Very Sad", "icon_cry.gif", 15, 17},
	{":evil:", "Evil or Very Mad", "icon_evil.gif", 15, 17},
	{":twisted:", "Twisted Evil", "icon_twisted.gif", 15, 17},
	{":roll:", "Rolling Eyes", "icon_rolleyes.gif", 15, 17},
	{":!:", "Exclamation", "icon_exclaim.gif", 15, 17},
	{":?:", "Question", "icon_question.gif", 15, 17},
	{":idea:", "Idea", "icon_idea.gif", 15, 17},
	{":arrow:", "Arrow", "icon_arrow.gif", 15, 17},
	{":|", "Neutral", "icon_neutral.gif", 15, 17},
	{":-|", "Neutral", "icon_neutral.gif", 15, 17},
	{":mrgreen:", "Mr. Green", "icon_mrgreen.gif", 15, 17},
	{":geek:", "Geek", "icon_e_geek.gif", 17, 17},
	{":ugeek:", "Uber Geek", "icon_e_ugeek.gif", 17, 18},
	{"8)", "Cool", "icon_cool.gif", 15, 17},
}

func findDefaultSmiley(code string) (defaultSmiley, bool) {
	for _, s := range defaultSmilies {
		if s.Code == code {
			return s, true
		}
	}
	return defaultSmiley{}, false
}

// defaultForumACL gives the stock phpBB roles to the predefined groups.
func defaultForumACL(forumID int) []sqldump.Row {
	perms := []struct{ group, role int }{
		{groupGuests, 17},     // read only
		{groupRegistered, 21}, // standard with polls
		{3, 21},               // registered COPPA
		{groupGlobalMods, 14}, // full access
		{groupGlobalMods, 11}, // standard moderation
		{groupAdmins, 14},
		{groupAdmins, 10}, // full moderation
		{groupBots, 19},
	}
	rows := make([]sqldump.Row, len(perms))
	for i, p := range perms {
		rows[i] = sqldump.Row{
			"group_id":       p.group,
			"forum_id":       forumID,
			"auth_option_id": 0,
			"auth_role_id":   p.role,
			"auth_setting":   0,
		}
	}
	return rows
}
