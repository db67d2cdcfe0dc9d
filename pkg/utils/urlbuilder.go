package utils

import "fmt"

const (
	STATISTICS_PATH = "/statistics"
	MEMBERLIST_PATH = "/memberlist"
	FORUMLIST_PATH  = "/a-f1/"
	ADMIN_PATH      = "/admin/index.forum"
	LOGIN_PATH      = "/login"

	FORUM_TEMPLATE      = "/%s%d-a"
	FORUM_PAGE_TEMPLATE = "/%s%dp%d-a"
	TOPIC_TEMPLATE      = "/t%d-a"
	TOPIC_PAGE_TEMPLATE = "/t%dp%d-a"
	GROUP_TEMPLATE      = "/g%d-a"
)

func BuildForumPath(kind string, id int) string {
	return fmt.Sprintf(FORUM_TEMPLATE, kind, id)
}

func BuildForumPagePath(kind string, id int, start int) string {
	return fmt.Sprintf(FORUM_PAGE_TEMPLATE, kind, id, start)
}

func BuildTopicPath(id int) string {
	return fmt.Sprintf(TOPIC_TEMPLATE, id)
}

func BuildTopicPagePath(id int, start int) string {
	return fmt.Sprintf(TOPIC_PAGE_TEMPLATE, id, start)
}

func BuildGroupPath(id int) string {
	return fmt.Sprintf(GROUP_TEMPLATE, id)
}
